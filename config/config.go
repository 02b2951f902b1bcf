package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/user"
	"path"

	log "github.com/sirupsen/logrus"
)

var DefaultBaseDirectoryPath string

func init() {
	u, err := user.Current()
	if err != nil {
		log.Fatalf("Could not get current user: %v", err)
	}
	DefaultBaseDirectoryPath = path.Join(u.HomeDir, "lib/specdiff")
}

type C struct {
	// Where annotated section files are written. Relative paths are
	// resolved against the working directory, not the base directory.
	OutputDir string `json:"output-dir"`

	// One of the logrus level names, e.g. "info" or "debug".
	LogLevel string `json:"log-level"`

	// Number of engine workers answering diff requests. More workers means
	// responses overtake each other more often; correctness does not depend
	// on it.
	EngineWorkers int `json:"engine-workers"`

	// Directory holding the specdiff config file and other files.
	// Other directories and files are derived from this.
	base string
}

// Load loads the configuration from the file called "config" in the provided
// base directory. A missing file is not an error: every option has a usable
// default.
func Load(base string) (*C, error) {
	filename := path.Join(base, "config")
	f, err := os.Open(filename)
	if os.IsNotExist(err) {
		return withDefaults(&C{base: base}), nil
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	fi, err := os.Stat(filename)
	if err != nil {
		return nil, err
	}
	if fi.Mode()&0077 != 0 {
		return nil, fmt.Errorf("reading config: %s mode is %#o, want %#o", filename, fi.Mode()&0777, fi.Mode()&0700)
	}
	c, err := load(f)
	if err != nil {
		return nil, err
	}
	c.base = base
	return withDefaults(c), nil
}

func load(r io.Reader) (c *C, err error) {
	err = json.NewDecoder(r).Decode(&c)
	return
}

func withDefaults(c *C) *C {
	if c.OutputDir == "" {
		c.OutputDir = path.Join(c.base, "out")
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.EngineWorkers <= 0 {
		c.EngineWorkers = 4
	}
	return c
}

func (c *C) LogFilePath() string {
	return path.Join(c.base, "specdiff.log")
}
