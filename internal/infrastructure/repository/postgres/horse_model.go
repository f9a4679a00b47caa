package postgres

type horseTableModel struct {
	ID         int64   `db:"id"`
	Name       string  `db:"name"`
	Country    *string `db:"country"`
	YearFoaled *int    `db:"year_foaled"`
	Sex        *string `db:"sex"`
	SireID     *int64  `db:"sire_id"`
	DamID      *int64  `db:"dam_id"`
	DamsireID  *int64  `db:"damsire_id"`
}

type horseInsertModel struct {
	Name       string  `db:"name"`
	Country    *string `db:"country"`
	YearFoaled *int    `db:"year_foaled"`
	Sex        *string `db:"sex"`
	SireID     *int64  `db:"sire_id"`
	DamID      *int64  `db:"dam_id"`
	DamsireID  *int64  `db:"damsire_id"`
}

type horseNameInsertModel struct {
	Name string `db:"name"`
}
