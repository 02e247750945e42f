// Package mmfile provides platform-specific helpers for using a file as an arena.
//
// On unix the file is mapped read-write and shared, so bytes placed by the
// allocator land in the page cache directly and reach the file on cleanup. Other
// platforms read the file into memory and write it back on cleanup.
package mmfile
