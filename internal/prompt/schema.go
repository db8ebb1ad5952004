package prompt

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/dotcommander/fireverse/internal/domain/episode"
)

func generateSchema[T any]() *jsonschema.Schema {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return r.Reflect(v)
}

// Schema returns the JSON schema of the episode record written to
// record.json.
func Schema() *jsonschema.Schema {
	s := generateSchema[episode.EpisodeRecord]()
	s.Title = "Fireverse episode record"
	return s
}

// SchemaJSON is Schema rendered as indented JSON.
func SchemaJSON() ([]byte, error) {
	data, err := json.MarshalIndent(Schema(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling schema: %w", err)
	}
	return data, nil
}
