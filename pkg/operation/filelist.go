package operation

import (
	"bufio"
	"os"

	"gitlab.com/tozd/go/errors"
)

// writeFileList stores names one per line in a fresh temp file and returns its
// path. On error nothing is left behind.
func writeFileList(dir string, names []string) (string, error) {
	f, err := os.CreateTemp(dir, "gribsync-files-*.txt")
	if err != nil {
		return "", errors.Errorf("creating file list: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, name := range names {
		if _, err := w.WriteString(name + "\n"); err != nil {
			return "", discard(f, errors.Errorf("writing file list: %w", err))
		}
	}
	if err := w.Flush(); err != nil {
		return "", discard(f, errors.Errorf("writing file list: %w", err))
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", errors.Errorf("closing file list: %w", err)
	}
	return f.Name(), nil
}

func discard(f *os.File, err error) error {
	_ = f.Close()
	_ = os.Remove(f.Name())
	return err
}
