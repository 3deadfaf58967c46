package device

// Defaults returns the factory device set, synthesised when no stored
// registry exists. Pin numbers match the stock four-channel relay wiring.
func Defaults() []Device {
	return []Device{
		{
			Channel:      0,
			Name:         "Luz_Cozinha",
			DisplayName:  "Kitchen Light",
			VoiceExposed: true,
			InputPins:    []int{25},
			OutputPins:   []int{21},
		},
		{
			Channel:      1,
			Name:         "Luz_Lavanderia",
			DisplayName:  "Laundry Light",
			VoiceExposed: true,
			InputPins:    []int{33},
			OutputPins:   []int{22},
		},
		{
			Channel:      2,
			Name:         "Luz_Corredor_Quintal",
			DisplayName:  "Corridor Light",
			VoiceExposed: true,
			InputPins:    []int{32},
			OutputPins:   []int{23},
		},
		{
			Channel:      3,
			Name:         "Luz_Quarto",
			DisplayName:  "Bedroom Light",
			VoiceExposed: true,
			InputPins:    []int{26, 27},
			OutputPins:   []int{19},
		},
	}
}
