package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tfshrms.cloud/hrms/hrms/testdb"
	"tfshrms.cloud/hrms/utils"
)

func TestUpsertQC(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	agent := testdb.User(t, db, "agent", testdb.RoleAgent)

	row, err := UpsertQC(ctx, db, QCInput{UserID: agent.ID, Date: "2026-02-10", AssignedHours: utils.Ptr(5.0)})
	require.NoError(t, err)
	assert.Nil(t, row.Score)
	assert.Equal(t, 5.0, *row.AssignedHours)

	row, err = UpsertQC(ctx, db, QCInput{UserID: agent.ID, Date: "2026-02-10", Score: utils.Ptr(8.0)})
	require.NoError(t, err)
	require.NotNil(t, row.Score)
	require.NotNil(t, row.AssignedHours)
	assert.Equal(t, 8.0, *row.Score)
	assert.Equal(t, 5.0, *row.AssignedHours)

	var count int64
	require.NoError(t, db.Table("qc_scores").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	tests := []struct {
		name string
		in   QCInput
		want error
	}{
		{"no values", QCInput{UserID: agent.ID, Date: "2026-02-10"}, ErrValidation},
		{"bad date", QCInput{UserID: agent.ID, Date: "10-02-2026", Score: utils.Ptr(1.0)}, ErrValidation},
		{"negative", QCInput{UserID: agent.ID, Date: "2026-02-10", Score: utils.Ptr(-1.0)}, ErrValidation},
		{"unknown user", QCInput{UserID: 999, Date: "2026-02-10", Score: utils.Ptr(1.0)}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UpsertQC(ctx, db, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
