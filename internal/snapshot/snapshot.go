// Package snapshot reads and writes the on-disk snapshot formats:
// items.json with the content, and assets.zip with a manifest plus one
// binary per asset.
package snapshot

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/contentmigrate/cm-cli/internal/core"
)

const manifestName = "assets.json"

// DefaultItemsFilename is the items snapshot written when no name is given.
const DefaultItemsFilename = "items.json"

// DefaultAssetsFilename is the assets archive written when no name is given.
const DefaultAssetsFilename = "assets.zip"

type itemsFile struct {
	Items []core.MigrationItem `json:"items"`
}

// WriteItems writes the items snapshot. The element maps serialize with
// sorted keys, so equal input produces byte-equal output.
func WriteItems(filename string, data *core.MigrationData) error {
	payload, err := json.MarshalIndent(itemsFile{Items: data.Items}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	if err := os.WriteFile(filename, payload, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return nil
}

// ReadItems reads an items snapshot.
func ReadItems(filename string) ([]core.MigrationItem, error) {
	payload, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	var file itemsFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return file.Items, nil
}

// manifestAsset mirrors core.MigrationAsset without the binary, plus the
// name of the binary entry inside the archive.
type manifestAsset struct {
	Codename     string                  `json:"codename"`
	Filename     string                  `json:"filename"`
	Title        string                  `json:"title,omitempty"`
	ContentType  string                  `json:"content_type,omitempty"`
	Collection   *core.CodenameRef       `json:"collection,omitempty"`
	Folder       *core.CodenameRef       `json:"folder,omitempty"`
	Descriptions []core.AssetDescription `json:"descriptions,omitempty"`
	BinaryEntry  string                  `json:"binary_entry"`
}

func binaryEntryName(asset *core.MigrationAsset) string {
	ext := path.Ext(asset.Filename)
	return asset.Codename + ext
}

// WriteAssets writes the asset archive: a JSON manifest plus each
// asset's binary under <codename>.<extension>.
func WriteAssets(filename string, assets []core.MigrationAsset) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create %s: %w", filename, err)
	}
	defer f.Close()

	w := zip.NewWriter(f)

	manifest := make([]manifestAsset, 0, len(assets))
	for i := range assets {
		asset := &assets[i]
		entryName := binaryEntryName(asset)
		manifest = append(manifest, manifestAsset{
			Codename:     asset.Codename,
			Filename:     asset.Filename,
			Title:        asset.Title,
			ContentType:  asset.ContentType,
			Collection:   asset.Collection,
			Folder:       asset.Folder,
			Descriptions: asset.Descriptions,
			BinaryEntry:  entryName,
		})
		entry, err := w.Create(entryName)
		if err != nil {
			return fmt.Errorf("create archive entry %s: %w", entryName, err)
		}
		if _, err := entry.Write(asset.BinaryData); err != nil {
			return fmt.Errorf("write archive entry %s: %w", entryName, err)
		}
	}

	manifestEntry, err := w.Create(manifestName)
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	payload, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if _, err := manifestEntry.Write(payload); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", filename, err)
	}
	return nil
}

// ReadAssets reads an asset archive back into migration assets.
func ReadAssets(filename string) ([]core.MigrationAsset, error) {
	r, err := zip.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	defer r.Close()

	entries := map[string]*zip.File{}
	for _, file := range r.File {
		entries[file.Name] = file
	}

	manifestFile, ok := entries[manifestName]
	if !ok {
		return nil, fmt.Errorf("%s: missing %s", filename, manifestName)
	}
	manifestData, err := readEntry(manifestFile)
	if err != nil {
		return nil, err
	}
	var manifest []manifestAsset
	if err := json.Unmarshal(manifestData, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	assets := make([]core.MigrationAsset, 0, len(manifest))
	for _, entry := range manifest {
		binaryFile, ok := entries[entry.BinaryEntry]
		if !ok {
			return nil, fmt.Errorf("%s: missing binary %s for asset %q", filename, entry.BinaryEntry, entry.Codename)
		}
		binary, err := readEntry(binaryFile)
		if err != nil {
			return nil, err
		}
		assets = append(assets, core.MigrationAsset{
			Codename:     entry.Codename,
			Filename:     entry.Filename,
			Title:        entry.Title,
			ContentType:  entry.ContentType,
			BinaryData:   binary,
			Collection:   entry.Collection,
			Folder:       entry.Folder,
			Descriptions: entry.Descriptions,
		})
	}
	return assets, nil
}

func readEntry(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open archive entry %s: %w", file.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read archive entry %s: %w", file.Name, err)
	}
	return data, nil
}
