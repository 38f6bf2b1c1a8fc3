// Package patches holds the catalogue of source patches installed into the
// vendored mdxtools and portable_mdx libraries.
//
// Every patch carries a marker that the code it installs also contains, so a
// patched tree is recognised and left alone. Patches for one file are listed
// in the order they must be applied.
package patches
