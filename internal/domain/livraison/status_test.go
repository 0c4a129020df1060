package livraison

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gestock/internal/core/types"
)

func TestMapIntent(t *testing.T) {
	tests := []struct {
		intent string
		want   Status
	}{
		{"livree", StatusLivree},
		{"livre", StatusLivree},
		{"complete", StatusLivree},
		{"LIVREE", StatusLivree},
		{"  livre  ", StatusLivree},
		{"partiellement_livree", StatusPartiellementLivree},
		{"partielle", StatusPartiellementLivree},
		{"en_attente", StatusEnAttente},
		{"", StatusEnAttente},
		{"garbage", StatusEnAttente},
	}
	for _, tt := range tests {
		t.Run(tt.intent, func(t *testing.T) {
			assert.Equal(t, tt.want, MapIntent(tt.intent))
		})
	}
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusEnAttente.Valid())
	assert.True(t, StatusPartiellementLivree.Valid())
	assert.True(t, StatusLivree.Valid())
	assert.False(t, Status("expediee").Valid())
}

func TestStatusForProgress(t *testing.T) {
	q := types.NewQuantityFromUnits

	assert.Equal(t, StatusEnAttente, StatusForProgress(q(0), q(10)))
	assert.Equal(t, StatusEnAttente, StatusForProgress(q(-1), q(10)))
	assert.Equal(t, StatusPartiellementLivree, StatusForProgress(q(1), q(10)))
	assert.Equal(t, StatusLivree, StatusForProgress(q(10), q(10)))
	assert.Equal(t, StatusLivree, StatusForProgress(q(11), q(10)))
	assert.Equal(t, StatusEnAttente, StatusForProgress(q(0), q(0)))
}

func TestDefaultLookupID(t *testing.T) {
	assert.Equal(t, int64(1), StatusEnAttente.DefaultLookupID())
	assert.Equal(t, int64(2), StatusPartiellementLivree.DefaultLookupID())
	assert.Equal(t, int64(3), StatusLivree.DefaultLookupID())
}
