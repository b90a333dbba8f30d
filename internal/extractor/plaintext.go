package extractor

import (
	"fmt"
	"os"
	"path/filepath"
)

func readPlain(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return string(data), nil
}

func plainInfo(path string) (map[string]string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"name":     st.Name(),
		"size":     fmt.Sprint(st.Size()),
		"modified": st.ModTime().Format("2006-01-02 15:04:05"),
	}, nil
}
