package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Load reads the TOML file at path over the defaults. A missing file is
// not an error; the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return decode(cfg, path, data)
}

// LoadReader reads TOML from r over the defaults.
func LoadReader(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Default(), fmt.Errorf("reading config: %w", err)
	}
	return decode(Default(), "<reader>", data)
}

// decode applies data over cfg. Keys that name no setting are rejected.
func decode(cfg Config, source string, data []byte) (Config, error) {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Default(), newParseError(source, err)
	}
	return cfg, nil
}

func newParseError(source string, err error) *ParseError {
	pe := &ParseError{
		Path:    source,
		Message: err.Error(),
		Err:     err,
	}

	var decErr *toml.DecodeError
	var strictErr *toml.StrictMissingError
	switch {
	case errors.As(err, &decErr):
		pe.Line, pe.Column = decErr.Position()
	case errors.As(err, &strictErr) && len(strictErr.Errors) > 0:
		first := &strictErr.Errors[0]
		pe.Line, pe.Column = first.Position()
		pe.Message = "unknown setting " + strings.Join(first.Key(), ".")
	}
	return pe
}
