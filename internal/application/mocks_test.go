package application_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ericfisherdev/livebadge/internal/domain/model"
	"github.com/ericfisherdev/livebadge/internal/domain/port/driven"
)

const (
	testEndpoint   = "https://abc.supabase.co"
	publicKey      = "sb_publishable_abc"
	serviceKey     = "sb_secret_xyz"
	badServiceKey  = "sb_secret_wrong"
	testMetricID   = "3f1c8a52-1f0e-4a57-9d57-2a8c4bb6b1de"
	missingMetric  = "00000000-0000-0000-0000-000000000000"
	testLabel      = "Records"
	testColor      = "#4F46E5"
	testTableName  = "todos"
	testSchemaName = "analytics"
)

// --- Mock implementations ---

type mockStore struct {
	mu      sync.Mutex
	records map[string]model.MetricRecord
	updates []int64

	getErr    error
	createErr error
	updateErr error
}

func newMockStore(recs ...model.MetricRecord) *mockStore {
	m := &mockStore{records: make(map[string]model.MetricRecord)}
	for _, r := range recs {
		m.records[r.ID] = r
	}
	return m
}

func (m *mockStore) Create(_ context.Context, rec model.MetricRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.records[rec.ID] = rec
	return nil
}

func (m *mockStore) Get(_ context.Context, id string) (*model.MetricRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *mockStore) UpdateCachedValue(_ context.Context, id string, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	rec, ok := m.records[id]
	if !ok {
		return driven.ErrMetricNotFound
	}
	rec.CachedValue = &value
	m.records[id] = rec
	m.updates = append(m.updates, value)
	return nil
}

func (m *mockStore) Ping(_ context.Context) error {
	return nil
}

func (m *mockStore) cached(id string) *int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id].CachedValue
}

type mockClient struct {
	probe      func(table model.TableRef, credential string) model.ProbeResult
	countUsers func(credential string) (int64, error)
	ping       func(credential string) error
	listTables func(credential string) ([]model.TableRef, error)

	probeCalls atomic.Int32
	userCalls  atomic.Int32
}

func (m *mockClient) ProbeCount(_ context.Context, _ string, table model.TableRef, credential string) model.ProbeResult {
	m.probeCalls.Add(1)
	if m.probe == nil {
		return model.ProbeResult{Status: 200, Total: 0, CountKnown: true}
	}
	return m.probe(table, credential)
}

func (m *mockClient) CountUsers(_ context.Context, _ string, credential string) (int64, error) {
	m.userCalls.Add(1)
	if m.countUsers == nil {
		return 0, nil
	}
	return m.countUsers(credential)
}

func (m *mockClient) Ping(_ context.Context, _ string, credential string) error {
	if m.ping == nil {
		return nil
	}
	return m.ping(credential)
}

func (m *mockClient) ListTables(_ context.Context, _ string, credential string) ([]model.TableRef, error) {
	if m.listTables == nil {
		return nil, nil
	}
	return m.listTables(credential)
}

// --- Helpers ---

func okProbe(total int64) model.ProbeResult {
	return model.ProbeResult{Status: 200, Total: total, CountKnown: true}
}

func status(code int) model.ProbeResult {
	return model.ProbeResult{Status: code, Err: driven.ErrUnexpectedStatus}
}

func probePtr(r model.ProbeResult) *model.ProbeResult {
	return &r
}

func int64Ptr(v int64) *int64 {
	return &v
}

// probeByKey answers each credential with its own result.
func probeByKey(results map[string]model.ProbeResult) func(model.TableRef, string) model.ProbeResult {
	return func(_ model.TableRef, credential string) model.ProbeResult {
		if r, found := results[credential]; found {
			return r
		}
		return status(401)
	}
}

func tableRecord(schema string, protected bool, cached *int64) model.MetricRecord {
	return model.MetricRecord{
		ID:               testMetricID,
		Endpoint:         testEndpoint,
		PublicCredential: publicKey,
		Label:            testLabel,
		Color:            testColor,
		Kind:             model.MetricKindTableCount,
		Table:            &model.TableRef{Schema: schema, Name: testTableName},
		Protected:        protected,
		CachedValue:      cached,
	}
}

func usersRecord(cached *int64) model.MetricRecord {
	return model.MetricRecord{
		ID:               testMetricID,
		Endpoint:         testEndpoint,
		PublicCredential: publicKey,
		Label:            "Users",
		Color:            testColor,
		Kind:             model.MetricKindUserCount,
		Protected:        true,
		CachedValue:      cached,
	}
}
