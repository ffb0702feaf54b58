package inventory

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCatalogServesInventory(t *testing.T) {
	c := NewCatalog()
	req := httptest.NewRequest(http.MethodGet, "/api/cars", nil)
	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var cars []Car
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cars))
	require.NotEmpty(t, cars)
	for _, car := range cars {
		require.NotEmpty(t, car.ID)
		require.NotEmpty(t, car.Make)
		require.Greater(t, car.Price, 0.0)
	}
}

func TestCatalogRejectsNonGet(t *testing.T) {
	c := NewCatalog()
	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/cars", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCarsReturnsACopy(t *testing.T) {
	c := NewCatalog()
	cars := c.Cars()
	cars[0].Make = "mutated"
	require.NotEqual(t, "mutated", c.Cars()[0].Make)
}
