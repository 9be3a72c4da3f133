package tei

import (
	"encoding/json"
	"os"

	"github.com/FocuswithJustin/BodhiCanon/core/errors"
)

// canonEntry mirrors one record of the collection name table shipped with
// the corpus ({"T": {"title-zh": "大正新脩大藏經", ...}, ...}).
type canonEntry struct {
	TitleZH string `json:"title-zh"`
}

// LoadCanons reads the collection name table, mapping collection codes to
// display names. A missing file is not an error: categories stay empty.
func LoadCanons(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, errors.NewIO("read", path, err)
	}

	raw := make(map[string]canonEntry)
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.NewParse("JSON", path, err.Error())
	}

	canons := make(map[string]string, len(raw))
	for code, entry := range raw {
		canons[code] = entry.TitleZH
	}
	return canons, nil
}
