package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
)

// TempDirPrefix 解压目录前缀
const TempDirPrefix = "homework_check_"

// ErrUnsafePath 压缩包条目路径越界
var ErrUnsafePath = errors.New("zip entry escapes destination")

// Entry 打包条目
type Entry struct {
	Name string
	Data []byte
}

// NewTempDir 在 root 下创建一个解压目录；root 为空时使用系统临时目录
func NewTempDir(root string) (string, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0755); err != nil {
			return "", err
		}
	}
	return os.MkdirTemp(root, TempDirPrefix)
}

// ExtractZip 将压缩包解压到 dest，返回解压出的文件数
func ExtractZip(r io.ReaderAt, size int64, dest string) (int, error) {
	zr, err := zip.NewReader(r, size)
	// 越界条目由 entryPath 统一拒绝
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return 0, fmt.Errorf("failed to open zip: %w", err)
	}

	root, err := filepath.Abs(dest)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, f := range zr.File {
		target, err := entryPath(root, entryName(f))
		if err != nil {
			return count, err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return count, err
			}
			continue
		}

		if err := extractFile(f, target); err != nil {
			return count, fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
		count++
	}
	return count, nil
}

// ExtractZipFile 解压磁盘上的压缩包
func ExtractZipFile(path, dest string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return ExtractZip(f, info.Size(), dest)
}

// ContentRoot 返回解压目录中实际存放作业的目录
// 压缩包只包含一个顶层文件夹时返回该文件夹，macOS 生成的 __MACOSX 目录不计入
func ContentRoot(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return dir
	}

	var only os.DirEntry
	for _, e := range entries {
		if e.Name() == "__MACOSX" {
			continue
		}
		if only != nil || !e.IsDir() {
			return dir
		}
		only = e
	}
	if only == nil {
		return dir
	}
	return filepath.Join(dir, only.Name())
}

// WriteZip 将条目以 Deflate 方式写入压缩包
func WriteZip(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	for _, e := range entries {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:   e.Name,
			Method: zip.Deflate,
		})
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", e.Name, err)
		}
		if _, err := fw.Write(e.Data); err != nil {
			return fmt.Errorf("failed to write %s: %w", e.Name, err)
		}
	}
	return zw.Close()
}

// entryName 返回条目名；未标记 UTF-8 且不是合法 UTF-8 的条目按 GB18030 解码（中文 Windows 压缩软件的默认编码）
func entryName(f *zip.File) string {
	if !f.NonUTF8 || utf8.ValidString(f.Name) {
		return f.Name
	}
	decoded, err := simplifiedchinese.GB18030.NewDecoder().String(f.Name)
	if err != nil {
		return f.Name
	}
	return decoded
}

func entryPath(root, name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	target := filepath.Join(root, filepath.FromSlash(name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
