package confgroups

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"

	"github.com/lhupfeldt/filegroups/types"
)

// configFile is the on-disk schema of a file_groups config file. hujson
// (JSON plus comments and trailing commas) is parsed rather than plain
// JSON so a config file stays a "no code execution" data format, readable
// with comments, instead of a program.
type configFile struct {
	FileGroups struct {
		Protect struct {
			Global    []string `json:"global"`
			Local     []string `json:"local"`
			Recursive []string `json:"recursive"`
		} `json:"protect"`
	} `json:"file_groups"`
}

// parseConfigFile reads and decodes path, rejecting unknown keys via
// DisallowUnknownFields so a typo in a config file fails loudly.
func parseConfigFile(path string) (*configFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.ConfigInvalidError{Path: path, Reason: err.Error()}
	}

	standardized, err := hujson.Standardize(raw)
	if err != nil {
		return nil, &types.ConfigInvalidError{Path: path, Reason: fmt.Sprintf("parsing hujson: %v", err)}
	}

	var doc configFile

	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&doc); err != nil {
		return nil, &types.ConfigInvalidError{Path: path, Reason: fmt.Sprintf("decoding: %v", err)}
	}

	return &doc, nil
}

// validate enforces the schema invariants readConfigFile's caller needs
// before compiling patterns: a "global" section is only legal in
// site/user config files, and at least one protect pattern must be
// present somewhere, matching the Python original's requirement that a
// config file without any protect.* entries is pointless and almost
// certainly a mistake.
func (d *configFile) validate(allowGlobal bool, path string) error {
	if !allowGlobal && len(d.FileGroups.Protect.Global) > 0 {
		return &types.ConfigInvalidError{Path: path, Reason: "'global' is only allowed in site/user config files"}
	}

	if len(d.FileGroups.Protect.Global) == 0 && len(d.FileGroups.Protect.Local) == 0 && len(d.FileGroups.Protect.Recursive) == 0 {
		return &types.ConfigInvalidError{Path: path, Reason: "no file_groups.protect patterns declared"}
	}

	return nil
}
