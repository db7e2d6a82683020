package store

import (
	"io/fs"
	"os"
)

// FileSystem is the subset of file operations the JSON backend needs.
// Tests swap in MockFileSystem.
type FileSystem interface {
	Stat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error
	Rename(oldpath, newpath string) error
	Remove(name string) error
}

// osFileSystem is the default implementation using the os package
type osFileSystem struct{}

func (osFileSystem) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }
func (osFileSystem) ReadFile(name string) ([]byte, error)  { return os.ReadFile(name) }
func (osFileSystem) Rename(oldpath, newpath string) error  { return os.Rename(oldpath, newpath) }
func (osFileSystem) Remove(name string) error              { return os.Remove(name) }
func (osFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(name, data, perm)
}
