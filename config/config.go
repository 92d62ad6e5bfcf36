/*
 * Copyright © 2025 Quayside Systems Inc., All rights reserved.
 */

package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/quayside/modelstore"
	"github.com/quayside/modelstore/store"
)

// DefaultRegion is used when neither configuration nor environment names one.
const DefaultRegion = "us-west-2"

// Duration is a time.Duration that unmarshals from YAML strings like "5s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler. Bare integers are read as
// nanoseconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a scalar: %w", err)
	}
	if parsed, err := time.ParseDuration(s); err == nil {
		*d = Duration(parsed)
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parse duration %q", s)
	}
	*d = Duration(n)
	return nil
}

// Config holds the connection and behavior settings for a modelstore client.
type Config struct {
	Region         string   `yaml:"region"`
	Endpoint       string   `yaml:"endpoint"`
	AccessKey      string   `yaml:"accessKey"`
	SecretKey      string   `yaml:"secretKey"`
	Namespace      string   `yaml:"namespace"`
	Testing        bool     `yaml:"testing"`
	RequestTimeout Duration `yaml:"requestTimeout"`
	MaxAttempts    int      `yaml:"maxAttempts"`
}

// FromEnv builds a Config from the process environment. A .env file in the
// working directory is loaded first when present.
func FromEnv() Config {
	_ = godotenv.Load()

	cfg := Config{
		Region:    firstEnv("MODELSTORE_REGION", "AWS_REGION", "AWS_DEFAULT_REGION"),
		Endpoint:  firstEnv("MODELSTORE_ENDPOINT", "AWS_ENDPOINT_URL"),
		AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		Namespace: os.Getenv("MODELSTORE_NAMESPACE"),
	}
	if v := os.Getenv("MODELSTORE_TESTING"); v != "" {
		cfg.Testing, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("MODELSTORE_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RequestTimeout = Duration(d)
		}
	}
	if v := os.Getenv("MODELSTORE_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxAttempts = n
		}
	}
	return cfg
}

// FromFile builds a Config from a YAML file.
func FromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Prefix resolves the table-name prefix for this configuration. An explicit
// namespace wins; otherwise the testing flag selects the fixed test prefix.
func (c Config) Prefix() string {
	if c.Namespace != "" {
		return c.Namespace
	}
	if c.Testing {
		return modelstore.TestNamespace
	}
	return ""
}

// StoreOptions translates the behavior settings into store options.
func (c Config) StoreOptions() []store.Option {
	var opts []store.Option
	if c.MaxAttempts > 0 {
		opts = append(opts, store.WithRetry(c.MaxAttempts, 0))
	}
	if c.RequestTimeout > 0 {
		opts = append(opts, store.WithRequestTimeout(time.Duration(c.RequestTimeout)))
	}
	return opts
}

// NewClient builds a DynamoDB client from the configuration. Static
// credentials and an endpoint override support local instances; everything
// else follows the default AWS credential chain.
func NewClient(ctx context.Context, cfg Config) (*dynamodb.Client, error) {
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}
