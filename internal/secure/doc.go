// Package secure keeps key shares and Vault tokens out of ordinary heap
// memory.
//
// Values are sealed in a memguard enclave (XSalsa20Poly1305, mlocked where
// the platform allows) and only decrypted into a locked buffer for the moment
// they are needed:
//
//	share, err := secure.ReadLine(os.Stdin)
//	if err != nil {
//	    return err
//	}
//	defer share.Destroy()
//
//	err = share.Use(func(key []byte) error {
//	    return submit(string(key))
//	})
//
// Call memguard.Purge from main before exiting to wipe any remaining state.
package secure
