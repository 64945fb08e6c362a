package quota

type seedRow struct {
	level     string
	parallel  string
	shift     string
	specialty string
	seats     int
}

var (
	egbLevels = []string{
		"Inicial 1",
		"Inicial 2",
		"1ro EGB",
		"2do EGB",
		"3ro EGB",
		"4to EGB",
		"5to EGB",
		"6to EGB",
		"7mo EGB",
		"8vo EGB",
		"9no EGB",
		"10mo EGB",
	}
	bguLevels      = []string{"1ro BGU", "2do BGU", "3ro BGU"}
	bguSpecialties = []string{"Ciencias", "Informática", "Contabilidad"}

	seedParallels = []string{"A", "B"}
	seedShifts    = []string{"Matutina", "Vespertina"}
)

// seedRows is the curriculum-wide quota table: every EGB level in both shifts,
// BGU per specialty in the morning shift only.
func seedRows() []seedRow {
	rows := make([]seedRow, 0, len(egbLevels)*len(seedParallels)*len(seedShifts))
	for _, level := range egbLevels {
		for _, shift := range seedShifts {
			for _, parallel := range seedParallels {
				rows = append(rows, seedRow{
					level:    level,
					parallel: parallel,
					shift:    shift,
					seats:    30,
				})
			}
		}
	}
	for _, level := range bguLevels {
		for _, specialty := range bguSpecialties {
			for _, parallel := range seedParallels {
				rows = append(rows, seedRow{
					level:     level,
					parallel:  parallel,
					shift:     "Matutina",
					specialty: specialty,
					seats:     35,
				})
			}
		}
	}
	return rows
}
