package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"studio/internal/core"
	"studio/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newRepo(t *testing.T) (*Repository, *storage.MemoryStore) {
	t.Helper()
	mem := storage.NewMemoryStore()
	n := 0
	repo := New(mem, nil,
		WithClock(func() time.Time { return fixedNow }),
		WithIDs(func() string { n++; return fmt.Sprintf("id-%d", n) }),
	)
	return repo, mem
}

func TestSeed_EmptyStore(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	seeded, err := repo.Seed(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)

	prices, err := repo.Prices.All(ctx)
	require.NoError(t, err)
	require.Len(t, prices, 5)
	assert.Equal(t, "Pulizia dentale", prices[0].Name)
	assert.Equal(t, core.Euro(80), prices[0].DefaultPrice)
	assert.Equal(t, "Sbiancamento", prices[4].Name)
	assert.Equal(t, core.Euro(300), prices[4].DefaultPrice)
}

func TestSeed_IdempotentWithPatients(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	_, err := repo.Seed(ctx)
	require.NoError(t, err)
	_, err = repo.Patients.Create(ctx, core.Patient{ID: "p1", Name: "Mario"})
	require.NoError(t, err)
	_, err = repo.Prices.Create(ctx, core.TreatmentPrice{ID: "custom", Name: "Impianto", DefaultPrice: core.Euro(1500)})
	require.NoError(t, err)

	seeded, err := repo.Seed(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)

	n, err := repo.Prices.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestSeed_KeepsExistingCatalog(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	seeded, err := repo.Seed(ctx)
	require.NoError(t, err)
	require.True(t, seeded)
	before, err := repo.Prices.All(ctx)
	require.NoError(t, err)

	_, err = repo.Prices.Create(ctx, core.TreatmentPrice{ID: "custom", Name: "Impianto", DefaultPrice: core.Euro(1500)})
	require.NoError(t, err)

	seeded, err = repo.Seed(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)

	after, err := repo.Prices.All(ctx)
	require.NoError(t, err)
	require.Len(t, after, 6)
	assert.Equal(t, before[0].ID, after[0].ID, "seeded ids are stable")
	_, ok, err := repo.Prices.Get(ctx, "custom")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPatientName(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)
	_, err := repo.Patients.Create(ctx, core.Patient{ID: "p1", Name: "Mario Rossi"})
	require.NoError(t, err)

	name, err := repo.PatientName(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Mario Rossi", name)

	name, err = repo.PatientName(ctx, "gone")
	require.NoError(t, err)
	assert.Equal(t, core.UnknownPatient, name)

	resolve := Names([]core.Patient{{ID: "p1", Name: "Mario Rossi"}})
	assert.Equal(t, "Mario Rossi", resolve("p1"))
	assert.Equal(t, "Paziente sconosciuto", resolve("x"))
}

func TestSyncPatientName(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)
	_, _ = repo.Appointments.Create(ctx, core.Appointment{ID: "a1", PatientID: "p1", PatientName: "Mario"})
	_, _ = repo.Appointments.Create(ctx, core.Appointment{ID: "a2", PatientID: "p2", PatientName: "Lucia"})
	_, _ = repo.Quotes.Create(ctx, core.Quote{ID: "q1", PatientID: "p1", PatientName: "Mario"})

	n, err := repo.SyncPatientName(ctx, "p1", "Mario Rossi")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	a1, _, _ := repo.Appointments.Get(ctx, "a1")
	a2, _, _ := repo.Appointments.Get(ctx, "a2")
	q1, _, _ := repo.Quotes.Get(ctx, "q1")
	assert.Equal(t, "Mario Rossi", a1.PatientName)
	assert.Equal(t, "Lucia", a2.PatientName)
	assert.Equal(t, "Mario Rossi", q1.PatientName)

	n, err = repo.SyncPatientName(ctx, "p1", "Mario Rossi")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDashboard_UsesClock(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)
	_, _ = repo.Appointments.Create(ctx, core.Appointment{ID: "a", Date: "2024-03-15", Status: core.StatusScheduled})
	_, _ = repo.Payments.Create(ctx, core.Payment{ID: "x", Date: "2024-03-15", Amount: core.Euro(40)})

	stats, err := repo.Dashboard(ctx)
	require.NoError(t, err)
	assert.Len(t, stats.TodayAppointments, 1)
	assert.Equal(t, core.Euro(40), stats.TodayRevenue)
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)
	_, err := repo.Seed(ctx)
	require.NoError(t, err)
	_, _ = repo.Patients.Create(ctx, core.Patient{ID: "p1", Name: "Mario", Email: "m@x.it", Phone: "1"})
	_, _ = repo.Documents.Create(ctx, core.Document{ID: "d1", PatientID: "p1", FileName: "rx.png", FileType: core.DocumentRx})
	_, _ = repo.Treatments.Create(ctx, core.Treatment{ID: "t1", PatientID: "p1", TreatmentName: "Otturazione", Cost: core.Euro(120), Status: core.TreatmentPlanned})
	q := core.Quote{ID: "q1", PatientID: "p1", Items: []core.QuoteItem{{TreatmentName: "Otturazione", Quantity: 2, UnitPrice: core.Cents(6050)}}, Status: core.QuoteAccepted}
	q.Recompute()
	_, _ = repo.Quotes.Create(ctx, q)

	data, err := repo.BackupJSON(ctx)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, k := range []string{"patients", "documents", "treatments", "appointments", "quotes", "payments", "treatmentPrices", "timestamp"} {
		assert.Contains(t, raw, k)
	}
	assert.JSONEq(t, `"2024-03-15T10:00:00.000Z"`, string(raw["timestamp"]))
	assert.JSONEq(t, `[]`, string(raw["appointments"]))

	other, _ := newRepo(t)
	ok, err := other.Restore(ctx, data)
	require.NoError(t, err)
	require.True(t, ok)

	got, _, _ := other.Quotes.Get(ctx, "q1")
	assert.Equal(t, q, got)
	n, _ := other.Prices.Count(ctx)
	assert.Equal(t, 5, n)
}

func TestRestore_MissingCollectionsBecomeEmpty(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)
	_, _ = repo.Payments.Create(ctx, core.Payment{ID: "x", Amount: core.Euro(5)})

	ok, err := repo.Restore(ctx, []byte(`{"patients":[{"id":"p9","name":"Anna"}]}`))
	require.NoError(t, err)
	require.True(t, ok)

	payments, _ := repo.Payments.All(ctx)
	assert.Empty(t, payments)
	patients, _ := repo.Patients.All(ctx)
	require.Len(t, patients, 1)
	assert.Equal(t, "Anna", patients[0].Name)
}

func TestRestore_ParseFailureLeavesDataUntouched(t *testing.T) {
	ctx := context.Background()
	repo, mem := newRepo(t)
	_, _ = repo.Patients.Create(ctx, core.Patient{ID: "p1", Name: "Mario"})
	before, _, _ := mem.Load(ctx, KeyPatients)

	for _, bad := range []string{`{not json`, `null`, `[1,2]`, `{"patients":"nope"}`} {
		ok, err := repo.Restore(ctx, []byte(bad))
		require.NoError(t, err, bad)
		assert.False(t, ok, bad)
	}

	after, _, _ := mem.Load(ctx, KeyPatients)
	assert.Equal(t, before, after)
}

// failingBackend refuses writes to one key while failing is set
type failingBackend struct {
	*storage.MemoryStore
	key     string
	failing bool
}

func (f *failingBackend) Save(ctx context.Context, key string, data []byte) error {
	if f.failing && key == f.key {
		return errors.New("disk full")
	}
	return f.MemoryStore.Save(ctx, key, data)
}

func TestRestore_WriteFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{MemoryStore: storage.NewMemoryStore(), key: KeyQuotes}
	repo := New(backend, nil, WithClock(func() time.Time { return fixedNow }))
	_, err := repo.Patients.Create(ctx, core.Patient{ID: "p1", Name: "Mario"})
	require.NoError(t, err)
	_, err = repo.Appointments.Create(ctx, core.Appointment{ID: "a1", PatientID: "p1", Date: "2024-03-15", Time: "10:00"})
	require.NoError(t, err)

	backend.failing = true
	ok, err := repo.Restore(ctx, []byte(`{"patients":[{"id":"p9","name":"Anna"}],"appointments":[]}`))
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), KeyQuotes)

	patients, err := repo.Patients.All(ctx)
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, "p1", patients[0].ID)
	appts, err := repo.Appointments.All(ctx)
	require.NoError(t, err)
	assert.Len(t, appts, 1)
}

func TestBackupFilename(t *testing.T) {
	assert.Equal(t, "backup-dentist-2024-03-15.json", BackupFilename("2024-03-15"))
}
