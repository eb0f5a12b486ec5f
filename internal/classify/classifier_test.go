package classify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/domain"
)

type fakeMappings struct {
	rows    map[string]domain.OperationType
	ensured []string
}

func (f *fakeMappings) Get(_ context.Context, name string) (*domain.CompanyMapping, error) {
	op, ok := f.rows[name]
	if !ok {
		return nil, nil
	}
	return &domain.CompanyMapping{NormalizedName: name, OperationType: op}, nil
}

func (f *fakeMappings) EnsureUnknown(_ context.Context, name string) (domain.CompanyMapping, bool, error) {
	f.ensured = append(f.ensured, name)
	if _, ok := f.rows[name]; ok {
		return domain.CompanyMapping{NormalizedName: name, OperationType: f.rows[name]}, false, nil
	}
	if f.rows == nil {
		f.rows = map[string]domain.OperationType{}
	}
	f.rows[name] = domain.OpUnknown
	return domain.CompanyMapping{NormalizedName: name, OperationType: domain.OpUnknown}, true, nil
}

func TestClassifyKnownCompany(t *testing.T) {
	fm := &fakeMappings{rows: map[string]domain.OperationType{"skyways": domain.OpAirline}}
	c := New(fm)

	op, known, err := c.Classify(context.Background(), "  Skyways ")
	require.NoError(t, err)
	assert.Equal(t, domain.OpAirline, op)
	assert.True(t, known)
	assert.Empty(t, fm.ensured, "curated companies must not be re-ensured")
}

func TestClassifyUnknownCompanyCreatesRow(t *testing.T) {
	fm := &fakeMappings{}
	c := New(fm)

	op, known, err := c.Classify(context.Background(), "New MRO GmbH")
	require.NoError(t, err)
	assert.Equal(t, domain.OpUnknown, op)
	assert.False(t, known)
	assert.Equal(t, []string{"new mro gmbh"}, fm.ensured)

	// Second sighting hits the existing row.
	_, _, err = c.Classify(context.Background(), "new mro gmbh")
	require.NoError(t, err)
	assert.Len(t, fm.ensured, 1)
}

func TestClassifyUncuratedRowStaysUnknown(t *testing.T) {
	fm := &fakeMappings{rows: map[string]domain.OperationType{"limbo air": domain.OpUnknown}}
	c := New(fm)

	op, known, err := c.Classify(context.Background(), "Limbo Air")
	require.NoError(t, err)
	assert.Equal(t, domain.OpUnknown, op)
	assert.False(t, known, "a row still pending review is not a curated mapping")
}

func TestClassifyEmptyName(t *testing.T) {
	fm := &fakeMappings{}
	c := New(fm)

	op, known, err := c.Classify(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, domain.OpUnknown, op)
	assert.False(t, known)
	assert.Empty(t, fm.ensured, "empty names must not create review rows")
}
