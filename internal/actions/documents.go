package actions

import (
	"context"
	"net/url"
	"strings"

	"lifeadmin-backend/internal/store"
)

type DocumentInput struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	FileURL    string `json:"fileUrl"`
	ExpiryDate string `json:"expiryDate"`
	Notes      string `json:"notes"`
}

type DocumentPatch struct {
	Name       *string `json:"name"`
	Category   *string `json:"category"`
	FileURL    *string `json:"fileUrl"`
	ExpiryDate *string `json:"expiryDate"`
	Notes      *string `json:"notes"`
}

func checkFileURL(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", nil
	}
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", invalid("fileUrl", "must be an http or https URL")
	}
	return v, nil
}

func (s *Service) CreateDocument(ctx context.Context, userID string, in DocumentInput) (*store.Document, error) {
	name, err := requireName("name", in.Name)
	if err != nil {
		return nil, err
	}
	category, err := checkText("category", in.Category)
	if err != nil {
		return nil, err
	}
	fileURL, err := checkFileURL(in.FileURL)
	if err != nil {
		return nil, err
	}
	expiry, err := ParseDate("expiryDate", in.ExpiryDate)
	if err != nil {
		return nil, err
	}
	notes, err := checkText("notes", in.Notes)
	if err != nil {
		return nil, err
	}

	d := &store.Document{
		UserID:     userID,
		Name:       name,
		Category:   category,
		FileURL:    fileURL,
		ExpiryDate: expiry,
		Notes:      notes,
	}
	if err := s.store.CreateDocument(ctx, d); err != nil {
		return nil, err
	}
	s.notified(ctx, "create document", s.notify.DocumentChanged(ctx, d))
	return d, nil
}

func (s *Service) GetDocument(ctx context.Context, userID, id string) (*store.Document, error) {
	return s.store.GetDocument(ctx, userID, id)
}

func (s *Service) ListDocuments(ctx context.Context, userID, category string) ([]store.Document, error) {
	return s.store.ListDocuments(ctx, userID, store.DocumentFilter{Category: category})
}

func (s *Service) UpdateDocument(ctx context.Context, userID, id string, p DocumentPatch) (*store.Document, error) {
	d, err := s.store.GetDocument(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if p.Name != nil {
		if d.Name, err = requireName("name", *p.Name); err != nil {
			return nil, err
		}
	}
	if p.Category != nil {
		if d.Category, err = checkText("category", *p.Category); err != nil {
			return nil, err
		}
	}
	if p.FileURL != nil {
		if d.FileURL, err = checkFileURL(*p.FileURL); err != nil {
			return nil, err
		}
	}
	if p.ExpiryDate != nil {
		if d.ExpiryDate, err = ParseDate("expiryDate", *p.ExpiryDate); err != nil {
			return nil, err
		}
	}
	if p.Notes != nil {
		if d.Notes, err = checkText("notes", *p.Notes); err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateDocument(ctx, d); err != nil {
		return nil, err
	}
	s.notified(ctx, "update document", s.notify.DocumentChanged(ctx, d))
	return d, nil
}

func (s *Service) DeleteDocument(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteDocument(ctx, userID, id); err != nil {
		return err
	}
	s.notified(ctx, "delete document", s.notify.DocumentDeleted(ctx, userID, id))
	return nil
}
