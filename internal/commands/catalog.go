// Package commands maintains the custom command catalog: a directory
// of markdown files with YAML front-matter, mirrored into the
// `commands` table by an fsnotify watcher, per spec.md §6 "Custom
// command files". Grounded on the fsnotify directory-watch idiom
// (supplemented from the pack's goclaw/kubernaut examples, no teacher
// precedent) and internal/store for persistence.
package commands

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relaybroker/broker/internal/errs"
	"github.com/relaybroker/broker/internal/logging"
	"github.com/relaybroker/broker/internal/store"
)

const frontMatterDelim = "---"

// frontMatter captures the required `name` key; everything else is
// kept as opaque metadata.
type frontMatter struct {
	Name string `yaml:"name"`
}

// Catalog mirrors a directory of `.md` command files into the store.
type Catalog struct {
	db  *store.DB
	dir string
	log *logging.Logger
}

// New constructs a Catalog over dir.
func New(db *store.DB, dir string) *Catalog {
	return &Catalog{db: db, dir: dir, log: logging.New("commands")}
}

// Scan walks dir once, upserting every parsable `.md` file found. It is
// the initial sync Watch's fsnotify loop builds on incrementally.
func (c *Catalog) Scan() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errs.Wrap(errs.KindValidation, "failed to read custom commands directory", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		path := filepath.Join(c.dir, e.Name())
		if err := c.syncFile(path); err != nil {
			c.log.Warnf("skipping %s: %v", path, err)
		}
	}
	return nil
}

// syncFile parses one markdown file's front matter and upserts it.
func (c *Catalog) syncFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	name, metadata, err := parseFrontMatter(raw)
	if err != nil {
		return err
	}
	if name == "" {
		return errs.New(errs.KindValidation, "missing required front-matter key \"name\"")
	}
	return c.db.UpsertCustomCommand(store.CustomCommand{
		Name:      name,
		FilePath:  path,
		Metadata:  metadata,
		UpdatedAt: time.Now().UTC(),
	})
}

// removeFile deletes any catalog entry pointed at path.
func (c *Catalog) removeFile(path string) error {
	return c.db.DeleteCustomCommandByPath(path)
}

// List returns every cataloged command.
func (c *Catalog) List() ([]store.CustomCommand, error) {
	return c.db.ListCustomCommands()
}

// Get looks up one command by name.
func (c *Catalog) Get(name string) (store.CustomCommand, error) {
	cmd, err := c.db.GetCustomCommand(name)
	if err != nil {
		return store.CustomCommand{}, errs.Wrap(errs.KindNotFound, "custom command \""+name+"\" not found", err)
	}
	return cmd, nil
}

// parseFrontMatter extracts the YAML block delimited by "---" lines at
// the top of a markdown file; metadata is every key the front matter
// carries, name included.
func parseFrontMatter(raw []byte) (name string, metadata map[string]any, err error) {
	text := string(raw)
	if !strings.HasPrefix(strings.TrimLeft(text, "﻿"), frontMatterDelim) {
		return "", nil, errs.New(errs.KindValidation, "file has no YAML front matter")
	}
	text = strings.TrimLeft(text, "﻿")
	rest := strings.TrimPrefix(text, frontMatterDelim)
	end := strings.Index(rest, "\n"+frontMatterDelim)
	if end == -1 {
		return "", nil, errs.New(errs.KindValidation, "unterminated front matter block")
	}
	block := rest[:end]

	var fm frontMatter
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return "", nil, errs.Wrap(errs.KindValidation, "invalid YAML front matter", err)
	}
	meta := map[string]any{}
	if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
		return "", nil, errs.Wrap(errs.KindValidation, "invalid YAML front matter", err)
	}
	return fm.Name, meta, nil
}
