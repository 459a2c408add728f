package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/ericfisherdev/livebadge/internal/domain/model"
	"github.com/ericfisherdev/livebadge/internal/domain/port/driven"
)

// DiscoveryService lists the tables a credential can see, as a convenience
// for the setup form. An empty result means the operator types the name.
type DiscoveryService struct {
	client driven.ProjectClient
}

// NewDiscoveryService creates a new DiscoveryService.
func NewDiscoveryService(client driven.ProjectClient) *DiscoveryService {
	return &DiscoveryService{client: client}
}

// ListTables returns the exposed tables, sorted by name.
func (s *DiscoveryService) ListTables(ctx context.Context, endpoint, credential string) ([]model.TableRef, error) {
	endpoint, err := normalizeEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	cred := model.ClassifyCredential(credential)
	if cred.Key == "" {
		return nil, fmt.Errorf("%w: credential is required", ErrInputInvalid)
	}

	tables, err := s.client.ListTables(ctx, endpoint, cred.Key)
	if err != nil {
		if errors.Is(err, driven.ErrAccessDenied) {
			return nil, fmt.Errorf("%w: %w", ErrAccessBlocked, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}

	if tables == nil {
		tables = []model.TableRef{}
	}
	return tables, nil
}
