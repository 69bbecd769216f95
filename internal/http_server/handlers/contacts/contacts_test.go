package contacts

import (
	"net/url"
	"testing"

	"auth_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilterParams(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantType *models.ContactType
		wantFav  *bool
	}{
		{
			name:  "empty query",
			query: "",
		},
		{
			name:     "valid type",
			query:    "type=work",
			wantType: contactTypePtr(models.ContactTypeWork),
		},
		{
			name:  "unknown type ignored",
			query: "type=office",
		},
		{
			name:    "favourite true",
			query:   "isFavourite=true",
			wantFav: boolPtr(true),
		},
		{
			name:    "favourite false",
			query:   "isFavourite=false",
			wantFav: boolPtr(false),
		},
		{
			name:  "favourite garbage ignored",
			query: "isFavourite=yes",
		},
		{
			name:     "both filters",
			query:    "type=personal&isFavourite=true",
			wantType: contactTypePtr(models.ContactTypePersonal),
			wantFav:  boolPtr(true),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			filter := parseFilterParams(values)

			assert.Equal(t, tt.wantType, filter.ContactType)
			assert.Equal(t, tt.wantFav, filter.IsFavourite)
		})
	}
}

func contactTypePtr(ct models.ContactType) *models.ContactType { return &ct }

func boolPtr(v bool) *bool { return &v }
