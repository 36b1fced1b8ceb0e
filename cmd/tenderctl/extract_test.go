package main

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/road-estimator/constants"
	"github.com/joseph-ayodele/road-estimator/internal/entity"
)

func TestSelectDocuments(t *testing.T) {
	var asked []constants.DocumentStatus
	docID := uuid.New()
	list := func(_ context.Context, statuses ...constants.DocumentStatus) ([]*entity.ExtractedDocument, error) {
		asked = statuses
		return []*entity.ExtractedDocument{{ID: docID}}, nil
	}
	ctx := context.Background()

	ids, err := selectDocuments(ctx, list, nil, false, false)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{docID}, ids)
	assert.NotContains(t, asked, constants.DocumentStatusFailed)
	assert.Contains(t, asked, constants.DocumentStatusTextOK)

	_, err = selectDocuments(ctx, list, nil, true, false)
	require.NoError(t, err)
	assert.Contains(t, asked, constants.DocumentStatusFailed)
	assert.NotContains(t, asked, constants.DocumentStatusParsed)

	_, err = selectDocuments(ctx, list, nil, false, true)
	require.NoError(t, err)
	assert.Len(t, asked, 6)

	explicit := uuid.New()
	asked = nil
	ids, err = selectDocuments(ctx, list, []string{explicit.String()}, false, false)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{explicit}, ids)
	assert.Nil(t, asked)

	_, err = selectDocuments(ctx, list, []string{"not-a-uuid"}, false, false)
	assert.Error(t, err)
}
