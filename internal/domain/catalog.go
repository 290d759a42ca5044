package domain

type Product struct {
	ID         string `json:"id"`
	BusinessID string `json:"business_id"`
	Name       string `json:"name"`
	Price      int64  `json:"price"` // cents
	Category   string `json:"category,omitempty"`
}

type Business struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category,omitempty"`
	DeliveryFee int64    `json:"delivery_fee"` // cents
	Location    Location `json:"location"`
	IsOpen      bool     `json:"is_open"`
	Address     string   `json:"address,omitempty"`
}

// Canned quick messages offered by the dashboards. The channel itself
// accepts arbitrary text; these are only the suggested shortcuts.
var (
	QuickMessagesDelivery = []string{
		"Estoy en la puerta",
		"Llego en 15 minutos",
		"Llego en 10 minutos",
		"No encuentro el domicilio",
	}
	QuickMessagesClient = []string{
		"Espero en la puerta",
		"Llamar al llegar",
		"Entregar en recepción",
	}
)
