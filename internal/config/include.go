package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// includeChannels appends channels from every file matching pattern to
// channels. A relative pattern is relative to the directory of the config
// file base. Files are read in lexical order, each of them holds a list of
// channels and may be empty. A channel name can be defined once only.
func includeChannels(base, pattern string, channels []Channel,
) ([]Channel, error) {
	if pattern == "" {
		return channels, nil
	} else if !filepath.IsAbs(pattern) && base != "" {
		pattern = filepath.Join(filepath.Dir(base), pattern)
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("include channels %q: %w", pattern, err)
	} else if matches == nil && !hasMeta(pattern) {
		if _, err := os.Lstat(pattern); err != nil {
			return nil, fmt.Errorf("include channels: %w", err)
		}
	}

	defined := make(map[string]string, len(channels))
	for i := range channels {
		defined[channels[i].Name] = base
	}

	for _, name := range matches {
		included, err := readChannels(name)
		if err != nil {
			return nil, err
		}
		for i := range included {
			ch := &included[i]
			if from, ok := defined[ch.Name]; ok {
				return nil, fmt.Errorf(
					"include channels from %q: channel %q already defined in %q",
					name, ch.Name, from)
			}
			defined[ch.Name] = name
		}
		channels = append(channels, included...)
	}
	return channels, nil
}

func readChannels(name string) ([]Channel, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("include channels: %w", err)
	}
	defer f.Close()

	var channels []Channel
	if err := yaml.NewDecoder(f).Decode(&channels); err != nil &&
		!errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("include channels from %q: %w", name, err)
	}
	return channels, nil
}

// hasMeta reports whether path contains any of the magic characters recognized
// by filepath.Match.
func hasMeta(path string) bool {
	magicChars := `*?[`
	if runtime.GOOS != "windows" {
		magicChars = `*?[\`
	}
	return strings.ContainsAny(path, magicChars)
}
