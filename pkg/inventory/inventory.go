package inventory

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Car is one inventory listing. The catalog is static for the process
// lifetime; the coordination layer treats it as read-only reference data.
type Car struct {
	ID        string  `json:"id"`
	Make      string  `json:"make"`
	Model     string  `json:"model"`
	Year      int     `json:"year"`
	Price     float64 `json:"price"`
	Mileage   int     `json:"mileage"`
	BodyStyle string  `json:"bodyStyle"`
	FuelType  string  `json:"fuelType"`
	Color     string  `json:"color"`
	ImageURL  string  `json:"imageUrl,omitempty"`
}

// Catalog serves the static inventory.
type Catalog struct {
	cars []Car
}

func NewCatalog() *Catalog {
	return &Catalog{cars: defaultCars()}
}

func (c *Catalog) Cars() []Car {
	out := make([]Car, len(c.cars))
	copy(out, c.cars)
	return out
}

// ServeHTTP answers GET /api/cars with the full inventory array.
func (c *Catalog) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(c.cars); err != nil {
		log.Error().Str("component", "inventory").Err(err).Msg("failed to encode inventory")
	}
}

func defaultCars() []Car {
	return []Car{
		{ID: "car-001", Make: "Toyota", Model: "Camry", Year: 2023, Price: 28999, Mileage: 12450, BodyStyle: "sedan", FuelType: "hybrid", Color: "silver"},
		{ID: "car-002", Make: "Honda", Model: "CR-V", Year: 2024, Price: 34250, Mileage: 3200, BodyStyle: "suv", FuelType: "gasoline", Color: "white"},
		{ID: "car-003", Make: "Ford", Model: "F-150", Year: 2022, Price: 42800, Mileage: 28900, BodyStyle: "truck", FuelType: "gasoline", Color: "blue"},
		{ID: "car-004", Make: "Tesla", Model: "Model 3", Year: 2024, Price: 41990, Mileage: 1100, BodyStyle: "sedan", FuelType: "electric", Color: "red"},
		{ID: "car-005", Make: "Chevrolet", Model: "Equinox", Year: 2023, Price: 27495, Mileage: 15600, BodyStyle: "suv", FuelType: "gasoline", Color: "black"},
		{ID: "car-006", Make: "BMW", Model: "X5", Year: 2023, Price: 62900, Mileage: 9800, BodyStyle: "suv", FuelType: "gasoline", Color: "gray"},
		{ID: "car-007", Make: "Hyundai", Model: "Ioniq 5", Year: 2024, Price: 43650, Mileage: 500, BodyStyle: "suv", FuelType: "electric", Color: "white"},
		{ID: "car-008", Make: "Subaru", Model: "Outback", Year: 2022, Price: 31200, Mileage: 22400, BodyStyle: "wagon", FuelType: "gasoline", Color: "green"},
		{ID: "car-009", Make: "Kia", Model: "Telluride", Year: 2023, Price: 38900, Mileage: 18700, BodyStyle: "suv", FuelType: "gasoline", Color: "black"},
		{ID: "car-010", Make: "Volkswagen", Model: "Jetta", Year: 2021, Price: 19850, Mileage: 34100, BodyStyle: "sedan", FuelType: "gasoline", Color: "silver"},
		{ID: "car-011", Make: "Mazda", Model: "CX-5", Year: 2024, Price: 30150, Mileage: 2700, BodyStyle: "suv", FuelType: "gasoline", Color: "red"},
		{ID: "car-012", Make: "Nissan", Model: "Leaf", Year: 2022, Price: 21500, Mileage: 19300, BodyStyle: "hatchback", FuelType: "electric", Color: "blue"},
	}
}
