package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const fileHeader = `# BlobFS Configuration File
#
# Values can be overridden with environment variables using the BLOBFS_
# prefix, e.g. BLOBFS_LOGGING_LEVEL=DEBUG or BLOBFS_STORE_TYPE=badger.
`

// sectionComments documents each top-level section of the generated file.
var sectionComments = map[string]string{
	"logging": `Logging
  level:  DEBUG, INFO, WARN, ERROR
  format: text, json
  output: stdout, stderr or a file path (rotated)`,

	"store": `Object store backing the filesystem
  type: memory, badger, azure, s3
  rate_limit: backend calls per second and burst (0 = unlimited)
Only the section named by type is used. Remote stores, for example:
  azure:
    connection_string: "DefaultEndpointsProtocol=https;AccountName=...;AccountKey=..."
    container: blobfs
    create_container: true
  s3:
    region: us-east-1
    bucket: my-bucket
    key_prefix: blobfs/
    endpoint: http://localhost:4566   # MinIO / Localstack`,

	"filesystem": `Filesystem emulation
  delimiter:             path separator inside object keys
  rename_check_interval: wait between copy status polls during rename
  rename_timeout:        upper bound for a whole rename (0 = none)`,

	"metrics": `Prometheus metrics, served at http://<host>:<port>/metrics`,
}

// InitConfig writes a sample configuration file to the default location and
// returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration file to path, creating
// parent directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// generateYAMLWithComments renders cfg as YAML with a header and a comment
// above each top-level section.
func generateYAMLWithComments(cfg *Config) (string, error) {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	// doc is a mapping node: keys and values alternate.
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		if comment, ok := sectionComments[key.Value]; ok {
			key.HeadComment = comment
		}
	}

	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	buf.WriteString("\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}

	return buf.String(), nil
}
