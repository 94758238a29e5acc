package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Difficulty is the map difficulty written into the header
type Difficulty int

const (
	DifficultyEasy Difficulty = iota
	DifficultyNormal
	DifficultyHard
	DifficultyExpert
	DifficultyImpossible
)

var difficultyNames = []string{"easy", "normal", "hard", "expert", "impossible"}

func (d Difficulty) String() string {
	if d < 0 || int(d) >= len(difficultyNames) {
		return "unknown"
	}
	return difficultyNames[d]
}

// ParseDifficulty accepts the names produced by String, case-insensitively.
// An empty string means normal.
func ParseDifficulty(s string) (Difficulty, error) {
	if s == "" {
		return DifficultyNormal, nil
	}
	for i, name := range difficultyNames {
		if strings.EqualFold(s, name) {
			return Difficulty(i), nil
		}
	}
	return DifficultyNormal, fmt.Errorf("unknown difficulty %q", s)
}

func (d Difficulty) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Difficulty) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDifficulty(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
