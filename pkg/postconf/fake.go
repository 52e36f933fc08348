package postconf

// Fake is an in-memory Store for tests. It counts underlying writes so
// idempotence of the reconciliation layer can be asserted.
type Fake struct {
	Values map[string]string
	Writes map[string]int
}

// NewFake returns an empty in-memory store. Unset keys read as "".
func NewFake() *Fake {
	return &Fake{
		Values: map[string]string{},
		Writes: map[string]int{},
	}
}

func (f *Fake) Get(key string) (string, error) {
	return f.Values[key], nil
}

func (f *Fake) Set(key, value string) error {
	f.Values[key] = value
	f.Writes[key]++
	return nil
}

// TotalWrites returns the number of underlying writes across all keys.
func (f *Fake) TotalWrites() int {
	n := 0
	for _, c := range f.Writes {
		n += c
	}
	return n
}
