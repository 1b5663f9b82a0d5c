// Package sysstat 提供管理接口用到的磁盘占用统计。
package sysstat

import (
	"os"
	"path/filepath"
	"syscall"
)

// DiskUsage 指定路径所在文件系统的容量信息（字节）
type DiskUsage struct {
	Total uint64
	Used  uint64
	Free  uint64
}

// Disk 读取路径所在文件系统的磁盘占用。
func Disk(path string) (DiskUsage, error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return DiskUsage{}, err
	}

	total := st.Blocks * uint64(st.Bsize)
	free := st.Bavail * uint64(st.Bsize)
	return DiskUsage{
		Total: total,
		Free:  free,
		Used:  total - free,
	}, nil
}

// DirSize 递归统计目录占用的字节数。目录不存在按 0 处理。
func DirSize(dir string) (int64, error) {
	var size int64
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		size += info.Size()
		return nil
	})
	if err != nil && os.IsNotExist(err) {
		return 0, nil
	}
	return size, err
}
