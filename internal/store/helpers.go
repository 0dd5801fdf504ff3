package store

import (
	"encoding/json"

	"github.com/venturelaunch/angel/internal/models"
)

// marshalStringList encodes a list column as JSON; empty lists become "".
func marshalStringList(list []string) (string, error) {
	if len(list) == 0 {
		return "", nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// unmarshalStringList decodes a JSON list column; invalid or empty text
// yields a nil slice rather than an error.
func unmarshalStringList(text string) []string {
	if text == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(text), &list); err != nil {
		return nil
	}
	return list
}

// marshalDeclarationLists encodes the four declaration list columns.
func marshalDeclarationLists(d models.CompletionDeclaration) (decisions, actions, documents, nextSteps string, err error) {
	if decisions, err = marshalStringList(d.Decisions); err != nil {
		return
	}
	if actions, err = marshalStringList(d.Actions); err != nil {
		return
	}
	if documents, err = marshalStringList(d.Documents); err != nil {
		return
	}
	nextSteps, err = marshalStringList(d.NextSteps)
	return
}

// unmarshalDeclarationLists decodes the four declaration list columns in place.
func unmarshalDeclarationLists(d *models.CompletionDeclaration, decisions, actions, documents, nextSteps string) {
	d.Decisions = unmarshalStringList(decisions)
	d.Actions = unmarshalStringList(actions)
	d.Documents = unmarshalStringList(documents)
	d.NextSteps = unmarshalStringList(nextSteps)
}
