package inventory

import "tapboard/internal/color"

// DefaultTaps is the number of tap lines a fresh venue starts with.
const DefaultTaps = 3

// DefaultState is the document written to an empty store.
func DefaultState() *State {
	s := &State{
		OnTap: map[string]*Beverage{
			TapKey(1): {
				Name:            "Pilsner",
				Type:            "Lager",
				ABV:             4.7,
				IBU:             30,
				EBC:             8,
				Description:     "Crisp and floral, brewed with Saaz hops.",
				Liters:          20,
				RemainingLiters: 20,
			},
			TapKey(2): {
				Name:            "Pale Ale",
				Type:            "IPA",
				ABV:             5.6,
				IBU:             45,
				EBC:             16,
				Description:     "Citrus and pine over a light caramel malt.",
				Liters:          20,
				RemainingLiters: 20,
			},
			TapKey(3): {
				Name:            "Porter",
				Type:            "Stout",
				ABV:             6.2,
				IBU:             35,
				EBC:             70,
				Description:     "Roasted malt, coffee and dark chocolate.",
				Liters:          20,
				RemainingLiters: 20,
			},
		},
		Types: []string{"Lager", "IPA", "Stout", "Sour", "Wheat"},
		GlassTypes: []Glass{
			{Name: "Seidel", Volume: 0.5},
			{Name: "Stemmed glass, tall", Volume: 0.4},
			{Name: "Stemmed glass, short", Volume: 0.25},
			{Name: "Stemmed glass, large", Volume: 0.33},
		},
	}
	for _, b := range s.OnTap {
		b.Color = color.FromEBC(b.EBC)
	}
	return s
}
