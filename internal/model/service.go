package model

// Category groups services for display. The set is open: unknown values
// are kept as-is and rendered in their own group.
type Category string

const (
	CategoryVirtualAssistance Category = "virtual-assistance"
	CategoryHumanResources    Category = "human-resources"
	CategoryTeaching          Category = "teaching"
	CategoryTattoo            Category = "tattoo"
	CategoryNailArt           Category = "nail-art"
)

// KnownCategories lists the built-in categories in display order.
var KnownCategories = []Category{
	CategoryVirtualAssistance,
	CategoryHumanResources,
	CategoryTeaching,
	CategoryTattoo,
	CategoryNailArt,
}

// Service is an offered service. Values are immutable once the catalog is built.
type Service struct {
	ID              string   `json:"id" yaml:"id"`
	Name            string   `json:"name" yaml:"name"`
	DurationMinutes int      `json:"duration_minutes" yaml:"duration_minutes"`
	Price           float64  `json:"price" yaml:"price"`
	Category        Category `json:"category" yaml:"category"`
}
