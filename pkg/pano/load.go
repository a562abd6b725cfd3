package pano

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true, ".bmp": true, ".webp": true,
}

// LoadFilesAndDirs loads job files and images. Directories are walked
// in filename order. Images become layers in the order they're found,
// so the first one becomes the reference image; but a job file that lists
// its images decides the layers and their order, wherever it turns up.
// Anything else is ignored.
func (j *Job) LoadFilesAndDirs(args ...string) error {
	for _, arg := range args {
		item, err := os.Stat(arg)

		switch {

		case err != nil:
			return fmt.Errorf("load %s: %v", arg, err)

		case item.IsDir():
			// Is a dir, recurse into contents
			contents, err := os.ReadDir(arg)
			if err != nil {
				return fmt.Errorf("readdir %s: %v", arg, err)
			}
			for _, content := range contents {
				if err := j.LoadFilesAndDirs(filepath.Join(arg, content.Name())); err != nil {
					return fmt.Errorf("load %s: %v", arg, err)
				}
			}

		default: // is a file, load it
			if err := j.loadFile(arg); err != nil {
				return fmt.Errorf("loadfile %s: %w", arg, err)
			}
		}
	}

	return nil
}

func (j *Job) loadFile(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))

	switch {
	case ext == ".yaml" || ext == ".yml":
		cfg, err := loadConfig(filename)
		if err != nil {
			return fmt.Errorf("Loading %s as job YAML failed: %w", filename, err)
		}
		j.Config = cfg
		log.Printf("Loaded job configuration from %s\n", filename)

		if len(cfg.Images) > 0 {
			if err := j.loadListedImages(filepath.Dir(filename)); err != nil {
				return err
			}
		}

	case imageExtensions[ext]:
		if j.listed != nil {
			if !j.listed[cleanPath(filename)] {
				log.Printf("Skipping %s, the job file doesn't list it\n", filename)
			}
			return nil
		}
		l, err := loadLayer(filename)
		if err != nil {
			return fmt.Errorf("Loading %s as image failed: %v", filename, err)
		}
		j.Layers = append(j.Layers, l)
	}

	return nil
}

// loadListedImages replaces the layers with exactly the images the job
// file names, in its order. Paths are relative to the job file. Images
// already loaded (e.g. by walking the job file's dir) are reused.
func (j *Job) loadListedImages(dir string) error {
	loaded := map[string]Layer{}
	for _, l := range j.Layers {
		loaded[cleanPath(l.LoadFilename)] = l
	}

	j.Layers = nil
	j.listed = map[string]bool{}
	for _, is := range j.Config.Images {
		if is.File == "" {
			continue
		}
		path := is.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		j.listed[cleanPath(path)] = true

		l, exists := loaded[cleanPath(path)]
		if !exists {
			var err error
			if l, err = loadLayer(path); err != nil {
				return fmt.Errorf("Loading %s as image failed: %v", path, err)
			}
		}
		j.Layers = append(j.Layers, l)
	}

	return nil
}

func cleanPath(filename string) string {
	if abs, err := filepath.Abs(filename); err == nil {
		return abs
	}
	return filepath.Clean(filename)
}

func loadConfig(filename string) (Config, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("config read %s: %v", filename, err)
	}

	return newConfigFromYaml(contents)
}

func loadLayer(filename string) (Layer, error) {
	l := Layer{LoadFilename: filename}

	if reader, err := os.Open(filename); err != nil {
		return l, fmt.Errorf("open+r img '%s': %v", filename, err)
	} else {
		defer reader.Close()
		img, _, err := image.Decode(reader)
		if err != nil {
			return l, fmt.Errorf("decoding '%s': %v", filename, err)
		}
		l.Image = img
	}

	// EXIF is optional; plenty of formats (PNG, BMP) don't carry it
	if reader, err := os.Open(filename); err == nil {
		defer reader.Close()
		if ex, err := exif.Decode(reader); err == nil {
			if tag, err := ex.Get(exif.Model); err == nil {
				if model, err := tag.StringVal(); err == nil {
					l.Camera = strings.TrimSpace(model)
				}
			}
			if t, err := ex.DateTime(); err == nil {
				l.TakenAt = t
			}
		}
	}

	return l, nil
}
