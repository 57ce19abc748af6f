package main

import (
	"strings"

	"github.com/gofrs/uuid"
)

var _ UIDHandler = (*IDsHandler)(nil)

// UIDHandler hands out and checks `<prefix>:<uuid v4>` identifiers used for
// request ids (`r`) and journal events (`j`).
type UIDHandler interface {
	Generate(prefix string) string
	IsValid(id, prefix string) bool
}

type IDsHandler struct {
	gen uuid.Generator
}

func NewIDsHandler() *IDsHandler {
	return &IDsHandler{gen: uuid.NewGen()}
}

// Generate returns a fresh id. A failing entropy source yields the nil uuid,
// which IsValid rejects.
func (h *IDsHandler) Generate(prefix string) string {
	u, err := h.gen.NewV4()
	if err != nil {
		u = uuid.Nil
	}
	return prefix + ":" + u.String()
}

// IsValid reports whether id carries the prefix followed by a random uuid.
func (h *IDsHandler) IsValid(id, prefix string) bool {
	raw, found := strings.CutPrefix(id, prefix+":")
	if !found {
		return false
	}
	u, err := uuid.FromString(raw)
	return err == nil && u.Version() == uuid.V4
}
