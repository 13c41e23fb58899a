// Package modver patches the symbol version CRCs embedded in compiled
// Linux kernel modules.
//
// A kernel built with CONFIG_MODVERSIONS records, for every symbol a
// module imports, a CRC computed over the symbol's interface. The CRCs
// live in the module's "__versions" ELF section as a packed array of
// fixed-size records and are checked at load time against the running
// kernel. Rewriting the CRCs is what makes a module built against one
// kernel force-loadable into another.
//
// The package never changes the size or position of anything inside the
// module: every patch is a same-size in-place overwrite of a CRC field,
// so the file remains structurally identical and still passes the
// loader's layout validation. It also never touches module signatures;
// a signed module has to be stripped by other means before patching.
package modver
