package entity

// SourceKind origen de negocio de un movimiento.
type SourceKind string

const (
	SourceNone     SourceKind = ""
	SourceSale     SourceKind = "sale"
	SourcePurchase SourceKind = "purchase"
	SourceManual   SourceKind = "manual"
)

// Source referencia tipada al documento que originó el movimiento ("Venta #123", "Compra #45").
// El valor cero significa sin origen.
type Source struct {
	Kind SourceKind
	ID   string
}

func SaleSource(id string) Source     { return Source{Kind: SourceSale, ID: id} }
func PurchaseSource(id string) Source { return Source{Kind: SourcePurchase, ID: id} }
func ManualSource(id string) Source   { return Source{Kind: SourceManual, ID: id} }

// IsZero indica ausencia de origen.
func (s Source) IsZero() bool { return s.Kind == SourceNone }

// Valid exige un tipo conocido con id, o el valor cero.
func (s Source) Valid() bool {
	switch s.Kind {
	case SourceNone:
		return s.ID == ""
	case SourceSale, SourcePurchase, SourceManual:
		return s.ID != ""
	}
	return false
}
