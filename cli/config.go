package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML config file. Values fill only flags left at their defaults.
//
// YAML example:
//
//	s3:
//	  key: "AKIAEXAMPLE"
//	  secret: "secret"
//	  region: "eu-west-1"
//	  retry: 5
//	  retrySleep: 5
//	catalog:
//	  enabled: true
//	  path: "/var/cache/s3file/s3_file_catalog.json"
//	file:
//	  owner: "www-data"
//	  mode: "0640"
type fileConfig struct {
	S3      s3FileConfig      `yaml:"s3"`
	IMDS    imdsFileConfig    `yaml:"imds"`
	Catalog catalogFileConfig `yaml:"catalog"`
	File    fsFileConfig      `yaml:"file"`
	Metrics string            `yaml:"metricsFile,omitempty"`
	OTLP    string            `yaml:"otlpEndpoint,omitempty"`
}

type s3FileConfig struct {
	Key                string `yaml:"key,omitempty"`
	Secret             string `yaml:"secret,omitempty"`
	Token              string `yaml:"token,omitempty"`
	Region             string `yaml:"region,omitempty"`
	Endpoint           string `yaml:"endpoint,omitempty"`
	Public             bool   `yaml:"public,omitempty"`
	Retry              uint   `yaml:"retry,omitempty"`
	RetrySleep         uint   `yaml:"retrySleep,omitempty"`
	Timeout            uint   `yaml:"timeout,omitempty"`
	RateLimitBandwidth int    `yaml:"ratelimitBandwidth,omitempty"`
	VerifyMD5          bool   `yaml:"verifyMD5,omitempty"`
	DecryptionKey      string `yaml:"decryptionKey,omitempty"`
}

type imdsFileConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	Timeout  uint   `yaml:"timeout,omitempty"`
}

type catalogFileConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

type fsFileConfig struct {
	Owner    string `yaml:"owner,omitempty"`
	Group    string `yaml:"group,omitempty"`
	Mode     string `yaml:"mode,omitempty"`
	FilePerm string `yaml:"filePerm,omitempty"`
	Xattr    bool   `yaml:"xattr,omitempty"`
}

func loadConfig(path string) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

// apply copy config values into fields of a that still hold the value from def.
func (fc fileConfig) apply(a *args, def args) {
	setString(&a.Key, def.Key, fc.S3.Key)
	setString(&a.Secret, def.Secret, fc.S3.Secret)
	setString(&a.Token, def.Token, fc.S3.Token)
	setString(&a.Region, def.Region, fc.S3.Region)
	setString(&a.Endpoint, def.Endpoint, fc.S3.Endpoint)
	a.Public = a.Public || fc.S3.Public
	setUint(&a.S3Retry, def.S3Retry, fc.S3.Retry)
	setUint(&a.S3RetrySleep, def.S3RetrySleep, fc.S3.RetrySleep)
	setUint(&a.S3Timeout, def.S3Timeout, fc.S3.Timeout)
	if a.RateLimitBandwidth == def.RateLimitBandwidth && fc.S3.RateLimitBandwidth != 0 {
		a.RateLimitBandwidth = fc.S3.RateLimitBandwidth
	}
	a.VerifyMD5 = a.VerifyMD5 || fc.S3.VerifyMD5
	setString(&a.DecryptionKey, def.DecryptionKey, fc.S3.DecryptionKey)

	setString(&a.IMDSEndpoint, def.IMDSEndpoint, fc.IMDS.Endpoint)
	setUint(&a.IMDSTimeout, def.IMDSTimeout, fc.IMDS.Timeout)

	a.UseCatalog = a.UseCatalog || fc.Catalog.Enabled
	setString(&a.CatalogPath, def.CatalogPath, fc.Catalog.Path)

	setString(&a.Owner, def.Owner, fc.File.Owner)
	setString(&a.Group, def.Group, fc.File.Group)
	setString(&a.FileMode, def.FileMode, fc.File.Mode)
	setString(&a.FSFilePerm, def.FSFilePerm, fc.File.FilePerm)
	a.FSXattr = a.FSXattr || fc.File.Xattr

	setString(&a.MetricsFile, def.MetricsFile, fc.Metrics)
	setString(&a.OTLPEndpoint, def.OTLPEndpoint, fc.OTLP)
}

func setString(dst *string, def, v string) {
	if *dst == def && v != "" {
		*dst = v
	}
}

func setUint(dst *uint, def, v uint) {
	if *dst == def && v != 0 {
		*dst = v
	}
}
