package gherkin_parser

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gherkin "github.com/cucumber/gherkin/go/v26"
	messages "github.com/cucumber/messages/go/v21"
	"github.com/google/uuid"
)

const (
	FeatureExtension = ".feature"

	IDGeneratorIncrementing = "incrementing"
	IDGeneratorUUID         = "uuid"
)

// NewIDGenerator returns the AST node id generator named kind. The ids stay
// local to the parsed documents: pickles from a message stream are bound to
// them by name and step texts, whatever ids the stream used.
func NewIDGenerator(kind string) (func() string, error) {
	switch strings.ToLower(kind) {
	case "", IDGeneratorIncrementing:
		return (&messages.Incrementing{}).NewId, nil
	case IDGeneratorUUID:
		return uuid.NewString, nil
	default:
		return nil, fmt.Errorf("unknown id generator %q", kind)
	}
}

func SearchFeatureFilesIn(directories []string) ([]string, error) {
	featureFiles := make([]string, 0)

	for _, directory := range directories {
		err := filepath.WalkDir(directory, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), FeatureExtension) {
				featureFiles = append(featureFiles, path)
			}
			return nil
		})

		if err != nil {
			return nil, fmt.Errorf("could not search %s for feature files: %w", directory, err)
		}
	}
	return featureFiles, nil
}

// ParseGherkinFile parses one feature source. The returned document carries
// uri so that execution events referring to it can be matched later.
func ParseGherkinFile(reader io.Reader, uri string, newID func() string) (*messages.GherkinDocument, error) {
	document, err := gherkin.ParseGherkinDocument(reader, newID)
	if err != nil {
		return nil, err
	}
	document.Uri = uri
	return document, nil
}

// LoadDocuments parses every feature file found below directories. File
// paths are used as document URIs, with forward slashes.
func LoadDocuments(directories []string, newID func() string) ([]*messages.GherkinDocument, error) {
	featureFiles, err := SearchFeatureFilesIn(directories)
	if err != nil {
		return nil, err
	}

	documents := make([]*messages.GherkinDocument, 0, len(featureFiles))
	for _, file := range featureFiles {
		readFile, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("could not read file %s, error=%w", file, err)
		}
		document, err := ParseGherkinFile(bytes.NewReader(readFile), filepath.ToSlash(file), newID)
		if err != nil {
			return nil, fmt.Errorf("gherkin parse error in file %s, error=%w", file, err)
		}
		documents = append(documents, document)
	}
	return documents, nil
}

// Pickles compiles the executable scenarios of a document.
func Pickles(document *messages.GherkinDocument, newID func() string) []*messages.Pickle {
	return gherkin.Pickles(*document, document.Uri, newID)
}
