package scene

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

const (
	builtinGroup = "Built-in Scenes"
	fileGroup    = "Scene Files"

	filePrefix = "file:"
)

// SceneInfo represents a discovered scene with its metadata
type SceneInfo struct {
	ID          string `json:"id"`          // Unique identifier
	Name        string `json:"name"`        // Scene name
	DisplayName string `json:"displayName"` // UI display name
	Description string `json:"description"` // Optional description
	Group       string `json:"group"`       // Grouping category
	Type        string `json:"type"`        // "builtin" or "file"
	FilePath    string `json:"filePath"`    // Path to the JSON file (file type only)
}

// SceneGroup represents a group of related scenes
type SceneGroup struct {
	Name   string      `json:"name"`
	Scenes []SceneInfo `json:"scenes"`
}

// ScenesResponse represents the complete response for /api/scenes
type ScenesResponse struct {
	Groups []SceneGroup `json:"groups"`
}

// Catalog finds scenes among the built-in presets and the JSON files of a
// directory
type Catalog struct {
	Dir string
}

// NewCatalog uses the first of dirs that exists. An empty catalog only
// knows the presets.
func NewCatalog(dirs ...string) *Catalog {
	for _, dir := range dirs {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return &Catalog{Dir: dir}
		}
	}
	return &Catalog{}
}

// ListFileScenes scans the catalog directory for JSON scenes. Files that fail
// to load are logged and skipped.
func (c *Catalog) ListFileScenes() ([]SceneInfo, error) {
	if c.Dir == "" {
		return []SceneInfo{}, nil
	}

	files, err := filepath.Glob(filepath.Join(c.Dir, "*.json"))
	if err != nil {
		return nil, errors.New("scanning scenes directory failed").
			WithTag("dir", c.Dir).
			Wrap(err)
	}

	scenes := []SceneInfo{}
	for _, path := range files {
		cfg, err := LoadConfig(path)
		if err != nil {
			logs.Warn(errors.New("skipping scene file").
				WithTag("path", path).
				Wrap(err))
			continue
		}
		scenes = append(scenes, fileSceneInfo(path, cfg))
	}

	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].DisplayName < scenes[j].DisplayName
	})
	return scenes, nil
}

func fileSceneInfo(path string, cfg Config) SceneInfo {
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	group := cfg.Group
	if group == "" {
		group = fileGroup
	}
	return SceneInfo{
		ID:          filePrefix + id,
		Name:        cfg.Name,
		DisplayName: titleCase(cfg.Name),
		Description: cfg.Description,
		Group:       group,
		Type:        "file",
		FilePath:    path,
	}
}

// ListAllScenes returns both built-in and file scenes, grouped by category
func (c *Catalog) ListAllScenes() (ScenesResponse, error) {
	var response ScenesResponse

	var allScenes []SceneInfo
	for _, name := range PresetNames() {
		cfg := presets[name]()
		allScenes = append(allScenes, SceneInfo{
			ID:          name,
			Name:        cfg.Name,
			DisplayName: titleCase(cfg.Name),
			Description: cfg.Description,
			Group:       builtinGroup,
			Type:        "builtin",
		})
	}

	fileScenes, err := c.ListFileScenes()
	if err != nil {
		return response, err
	}
	allScenes = append(allScenes, fileScenes...)

	// Group scenes by their Group field
	groupMap := make(map[string][]SceneInfo)
	for _, scene := range allScenes {
		groupMap[scene.Group] = append(groupMap[scene.Group], scene)
	}

	// Create ordered groups (Built-in first, then alphabetical)
	var groupNames []string
	for groupName := range groupMap {
		if groupName != builtinGroup {
			groupNames = append(groupNames, groupName)
		}
	}
	sort.Strings(groupNames)

	if builtInScenes, exists := groupMap[builtinGroup]; exists {
		response.Groups = append(response.Groups, SceneGroup{
			Name:   builtinGroup,
			Scenes: builtInScenes,
		})
	}

	for _, groupName := range groupNames {
		response.Groups = append(response.Groups, SceneGroup{
			Name:   groupName,
			Scenes: groupMap[groupName],
		})
	}

	return response, nil
}

// Lookup returns the configuration of a scene by ID. IDs are preset names or
// "file:" followed by a file name without its extension.
func (c *Catalog) Lookup(id string) (Config, error) {
	name, isFile := strings.CutPrefix(id, filePrefix)
	if !isFile {
		return ConfigForPreset(id)
	}

	if c.Dir == "" || name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return Config{}, errors.Newf("unknown scene %q", id).
			WithType(ErrTypeUnknownScene).
			WithTag("scene", id)
	}

	path := filepath.Join(c.Dir, name+".json")
	if _, err := os.Stat(path); err != nil {
		return Config{}, errors.Newf("unknown scene %q", id).
			WithType(ErrTypeUnknownScene).
			WithTag("scene", id).
			Wrap(err)
	}
	return LoadConfig(path)
}

// titleCase converts a filename-style string to title case
// e.g., "north-sea" -> "North Sea"
func titleCase(s string) string {
	// Replace hyphens and underscores with spaces
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")

	// Title case each word
	words := strings.Fields(s)
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		}
	}

	return strings.Join(words, " ")
}
