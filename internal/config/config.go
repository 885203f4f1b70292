package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/mchr3k/eclemma/internal/directive"
)

type Config struct {
	Workspace  string
	Projects   string
	ExecFile   string
	Directives directive.Mode
	Exclude    []string
	ExecS3     ExecS3Config
}

type ExecS3Config struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Object    string
	UseSSL    bool
}

// Load reads .env (if present), then flags from args, then the environment.
// Flags given explicitly win over the environment.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("covroots", flag.ContinueOnError)
	workspace := fs.String("workspace", "", "workspace root directory")
	projects := fs.String("projects", "", "project description file (JSON)")
	execFile := fs.String("exec", "", "execution data file (JSON)")
	directives := fs.String("source-directives", "", "disabled, enabled-loose or enabled-strict")
	exclude := fs.String("exclude", "", "comma separated gitignore-style patterns skipped while walking")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	mode, err := directive.ParseMode(firstNonEmpty(*directives, env("COVROOTS_SOURCE_DIRECTIVES")))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Workspace:  firstNonEmpty(*workspace, env("COVROOTS_WORKSPACE"), "."),
		Projects:   firstNonEmpty(*projects, env("COVROOTS_PROJECTS"), "projects.json"),
		ExecFile:   strings.TrimSpace(firstNonEmpty(*execFile, env("COVROOTS_EXEC_FILE"))),
		Directives: mode,
		Exclude:    splitList(firstNonEmpty(*exclude, env("COVROOTS_EXCLUDE"))),
		ExecS3:     loadExecS3Config(),
	}
	if cfg.ExecFile != "" && cfg.ExecS3.Enabled {
		return nil, fmt.Errorf("execution data file and EXECDATA_S3_ENDPOINT are mutually exclusive")
	}
	return cfg, nil
}

func loadExecS3Config() ExecS3Config {
	endpoint := env("EXECDATA_S3_ENDPOINT")
	return ExecS3Config{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(env("EXECDATA_S3_REGION"), "us-east-1"),
		AccessKey: firstNonEmpty(env("EXECDATA_S3_ACCESS_KEY"), env("MINIO_ROOT_USER")),
		SecretKey: firstNonEmpty(env("EXECDATA_S3_SECRET_KEY"), env("MINIO_ROOT_PASSWORD")),
		Bucket:    env("EXECDATA_S3_BUCKET"),
		Object:    env("EXECDATA_S3_OBJECT"),
		UseSSL:    resolveUseSSL(),
	}
}

func resolveUseSSL() bool {
	raw := env("EXECDATA_S3_USE_SSL")
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
