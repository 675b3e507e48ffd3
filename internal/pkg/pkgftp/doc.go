// Package pkgftp downloads export files from an FTP drop folder.
package pkgftp
