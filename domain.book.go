package main

import (
	"bytes"
	"context"
	"encoding/json"
)

// Book represents a book record as exposed by the libros backend.
// The identifier is always assigned by the backend. Members the typed
// fields cannot hold (unknown keys, nulls, unexpected value types) are
// kept untouched in Extra and written back as received.
type Book struct {
	ID              int                        `json:"id"`
	Title           string                     `json:"titulo"`
	Author          string                     `json:"autor"`
	Publisher       string                     `json:"editorial"`
	PublicationDate string                     `json:"fecha_publicacion"`
	Extra           map[string]json.RawMessage `json:"-" swaggerignore:"true"`
}

// UnmarshalJSON fills the typed fields it can and keeps everything else.
func (b *Book) UnmarshalJSON(data []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}

	*b = Book{}
	for key, value := range members {
		var target interface{}
		switch key {
		case "id":
			target = &b.ID
		case "titulo":
			target = &b.Title
		case "autor":
			target = &b.Author
		case "editorial":
			target = &b.Publisher
		case "fecha_publicacion":
			target = &b.PublicationDate
		}

		if target != nil && !bytes.Equal(bytes.TrimSpace(value), []byte("null")) && json.Unmarshal(value, target) == nil {
			continue
		}
		if b.Extra == nil {
			b.Extra = make(map[string]json.RawMessage)
		}
		b.Extra[key] = value
	}
	return nil
}

// MarshalJSON writes the typed fields then the kept members, the latter
// taking precedence on a shared key.
func (b Book) MarshalJSON() ([]byte, error) {
	members := make(map[string]interface{}, 5+len(b.Extra))
	members["id"] = b.ID
	members["titulo"] = b.Title
	members["autor"] = b.Author
	members["editorial"] = b.Publisher
	members["fecha_publicacion"] = b.PublicationDate
	for key, value := range b.Extra {
		members[key] = value
	}
	return json.Marshal(members)
}

// BookPayload holds the mutable fields of a book. It is the exact
// body sent on creation and update, so any other field a caller
// may have is dropped before reaching the wire.
type BookPayload struct {
	Title           string `json:"titulo"`
	Author          string `json:"autor"`
	Publisher       string `json:"editorial"`
	PublicationDate string `json:"fecha_publicacion"`
}

// Payload returns the mutable part of the book.
func (b Book) Payload() BookPayload {
	return BookPayload{
		Title:           b.Title,
		Author:          b.Author,
		Publisher:       b.Publisher,
		PublicationDate: b.PublicationDate,
	}
}

// BookClient defines possible remote operations on book entity.
type BookClient interface {
	List(ctx context.Context) ([]Book, error)
	Get(ctx context.Context, id int) (Book, error)
	Create(ctx context.Context, book BookPayload) (Book, error)
	Update(ctx context.Context, id int, book BookPayload) (Book, error)
	Delete(ctx context.Context, id int) (json.RawMessage, error)
}
