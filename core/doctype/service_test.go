package doctype_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/doctype"
	dummydb "github.com/trezcool/fyp/storage/database/dummy"
	"github.com/trezcool/fyp/tests"
)

func intPtr(i int) *int { return &i }

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv(t)
	env.CreateDocType(t, doctype.CodeSRS, 40, 60, 2)

	tests := []struct {
		name    string
		ndt     doctype.NewDocumentType
		wantErr func(error) bool
	}{
		{
			name:    "weights do not add up",
			ndt:     doctype.NewDocumentType{Code: "SDS", Title: "Design", WeightSupervisor: 40, WeightCommittee: 50},
			wantErr: core.IsValidation,
		},
		{
			name:    "weight out of range",
			ndt:     doctype.NewDocumentType{Code: "SDS", Title: "Design", WeightSupervisor: 120, WeightCommittee: -20},
			wantErr: core.IsValidation,
		},
		{
			name:    "unknown code",
			ndt:     doctype.NewDocumentType{Code: "POSTER", Title: "Poster", WeightSupervisor: 50, WeightCommittee: 50},
			wantErr: core.IsValidation,
		},
		{
			name:    "blank title",
			ndt:     doctype.NewDocumentType{Code: "SDS", Title: "   ", WeightSupervisor: 50, WeightCommittee: 50},
			wantErr: core.IsValidation,
		},
		{
			name:    "duplicate code",
			ndt:     doctype.NewDocumentType{Code: "SRS", Title: "Requirements", WeightSupervisor: 50, WeightCommittee: 50},
			wantErr: core.IsConflict,
		},
		{
			name: "valid",
			ndt:  doctype.NewDocumentType{Code: " THESIS ", Title: "Thesis", WeightSupervisor: 30, WeightCommittee: 70, DisplayOrder: 5},
		},
		{
			name: "all to supervisor",
			ndt:  doctype.NewDocumentType{Code: "PROPOSAL", Title: "Proposal", WeightSupervisor: 100},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dt, err := env.DocTypes.Create(context.Background(), tt.ndt, testutil.Coordinator)
			if tt.wantErr != nil {
				assert.True(t, tt.wantErr(err), "unexpected error: %v", err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, dt.ID)
			assert.True(t, dt.IsActive)
			assert.True(t, dt.WeightsValid())
			assert.Equal(t, core.CleanString(tt.ndt.Code), string(dt.Code))
		})
	}
}

func TestService_Update(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	dt := env.CreateDocType(t, doctype.CodeSRS, 40, 60, 1)

	tests := []struct {
		name    string
		udt     doctype.UpdateDocumentType
		wantErr bool
		check   func(t *testing.T, dt doctype.DocumentType)
	}{
		{
			name:    "one weight breaks the sum",
			udt:     doctype.UpdateDocumentType{WeightSupervisor: intPtr(50)},
			wantErr: true,
		},
		{
			name: "both weights",
			udt:  doctype.UpdateDocumentType{WeightSupervisor: intPtr(50), WeightCommittee: intPtr(50)},
			check: func(t *testing.T, dt doctype.DocumentType) {
				assert.Equal(t, 50, dt.WeightSupervisor)
				assert.Equal(t, 50, dt.WeightCommittee)
			},
		},
		{
			name: "display order",
			udt:  doctype.UpdateDocumentType{DisplayOrder: intPtr(9)},
			check: func(t *testing.T, dt doctype.DocumentType) {
				assert.Equal(t, 9, dt.DisplayOrder)
				assert.Equal(t, doctype.CodeSRS, dt.Code)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.DocTypes.Update(ctx, dt.ID, tt.udt, testutil.Coordinator)
			if tt.wantErr {
				assert.True(t, core.IsValidation(err), "unexpected error: %v", err)
				return
			}
			require.NoError(t, err)
			tt.check(t, got)
		})
	}

	_, err := env.DocTypes.Update(ctx, "nope", doctype.UpdateDocumentType{DisplayOrder: intPtr(1)}, testutil.Coordinator)
	assert.True(t, core.IsNotFound(err))
}

func TestService_registry(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	thesis := env.CreateDocType(t, doctype.CodeThesis, 30, 70, 3)
	srs := env.CreateDocType(t, doctype.CodeSRS, 40, 60, 1)
	sds := env.CreateDocType(t, doctype.CodeSDS, 40, 60, 1)

	active, err := env.DocTypes.ListActive(ctx)
	require.NoError(t, err)
	codes := make([]doctype.Code, 0, len(active))
	for _, dt := range active {
		codes = append(codes, dt.Code)
	}
	assert.Equal(t, []doctype.Code{doctype.CodeSDS, doctype.CodeSRS, doctype.CodeThesis}, codes)

	got, err := env.DocTypes.GetActive(ctx, doctype.CodeThesis)
	require.NoError(t, err)
	assert.Equal(t, thesis.ID, got.ID)

	_, err = env.DocTypes.RequireActive(ctx, srs.ID)
	assert.NoError(t, err)

	// deactivation is seen by the registry right away
	_, err = env.DocTypes.Deactivate(ctx, sds.ID, testutil.Coordinator)
	require.NoError(t, err)

	_, err = env.DocTypes.GetActive(ctx, doctype.CodeSDS)
	assert.True(t, core.IsNotFound(err))
	_, err = env.DocTypes.RequireActive(ctx, sds.ID)
	assert.True(t, core.IsValidation(err))
	_, err = env.DocTypes.RequireActive(ctx, "unknown")
	assert.True(t, core.IsValidation(err))

	active, err = env.DocTypes.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	all, err := env.DocTypes.Query(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// inactive types are kept with their weights
	kept, err := env.DocTypes.GetByID(ctx, sds.ID)
	require.NoError(t, err)
	assert.False(t, kept.IsActive)
	assert.Equal(t, 40, kept.WeightSupervisor)
}

func TestService_registry_outsideWrites(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	srs := env.CreateDocType(t, doctype.CodeSRS, 40, 60, 1)

	active, err := env.DocTypes.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	// another process writes to the same store
	repo := dummydb.NewDocumentTypeRepository(env.DB)
	now := time.Now().UTC()
	thesis, err := repo.CreateDocumentType(ctx, doctype.DocumentType{
		ID:               "thesis",
		Code:             doctype.CodeThesis,
		Title:            "Thesis",
		WeightSupervisor: 30,
		WeightCommittee:  70,
		DisplayOrder:     2,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	require.NoError(t, err)

	_, err = env.DocTypes.RequireActive(ctx, thesis.ID)
	assert.NoError(t, err)
	active, err = env.DocTypes.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	srs.IsActive = false
	srs.UpdatedAt = now.Add(time.Second)
	_, err = repo.UpdateDocumentType(ctx, srs)
	require.NoError(t, err)

	_, err = env.DocTypes.RequireActive(ctx, srs.ID)
	assert.True(t, core.IsValidation(err), "unexpected error: %v", err)
}

func TestService_events(t *testing.T) {
	env := testutil.NewEnv(t)
	dt := env.CreateDocType(t, doctype.CodeProposal, 100, 0, 0)
	_, err := env.DocTypes.Deactivate(context.Background(), dt.ID, testutil.Coordinator)
	require.NoError(t, err)

	evts := env.Events.Events()
	require.Len(t, evts, 2)
	assert.Equal(t, core.EventDocumentTypeChanged, evts[0].Kind)
	assert.Equal(t, "active", evts[0].NewState)
	assert.Equal(t, "active", evts[1].OldState)
	assert.Equal(t, "inactive", evts[1].NewState)
	assert.Equal(t, testutil.Coordinator, evts[1].Actor)
}

func TestParseCode(t *testing.T) {
	tests := []struct {
		in      string
		want    doctype.Code
		wantErr bool
	}{
		{in: "SRS", want: doctype.CodeSRS},
		{in: "  FINAL_PRESENTATION ", want: doctype.CodeFinalPresentation},
		{in: "srs", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := doctype.ParseCode(tt.in)
			if tt.wantErr {
				assert.True(t, core.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDocumentType_WeightsValid(t *testing.T) {
	tests := []struct {
		ws, wc int
		want   bool
	}{
		{40, 60, true},
		{100, 0, true},
		{0, 100, true},
		{50, 49, false},
		{-10, 110, false},
	}
	for _, tt := range tests {
		dt := doctype.DocumentType{WeightSupervisor: tt.ws, WeightCommittee: tt.wc}
		assert.Equal(t, tt.want, dt.WeightsValid(), "weights %d/%d", tt.ws, tt.wc)
	}
}
