package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/livebadge/internal/domain/model"
)

// Sentinel errors returned by ProjectClient implementations.
var (
	// ErrAccessDenied indicates the remote project answered 401 or 403.
	ErrAccessDenied = errors.New("access denied by remote project")

	// ErrUnexpectedStatus indicates any other non-2xx answer.
	ErrUnexpectedStatus = errors.New("unexpected status from remote project")
)

// ProjectClient defines the driven port for the remote project's HTTP API.
type ProjectClient interface {
	// ProbeCount issues a zero-row count probe. It never returns an error;
	// failures are reported through the result's Status and Err fields.
	ProbeCount(ctx context.Context, endpoint string, table model.TableRef, credential string) model.ProbeResult

	// CountUsers enumerates auth users under a privileged credential.
	CountUsers(ctx context.Context, endpoint, credential string) (int64, error)

	// Ping verifies that the endpoint answers with the given credential.
	Ping(ctx context.Context, endpoint, credential string) error

	// ListTables returns the tables and views exposed by the REST API.
	ListTables(ctx context.Context, endpoint, credential string) ([]model.TableRef, error)
}
