package checkout

import "fmt"

const DefaultCountry = "United States"

// Form holds the checkout inputs. JSON names double as the keys of the
// per-field error map.
type Form struct {
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	ShippingAddress string `json:"shipping_address"`
	City            string `json:"city"`
	State           string `json:"state"`
	ZipCode         string `json:"zip_code"`
	Country         string `json:"country"`
	PaymentMethod   string `json:"payment_method"`
	CardNumber      string `json:"card_number"`
	ExpiryDate      string `json:"expiry_date"`
	CVV             string `json:"cvv"`
	CardholderName  string `json:"cardholder_name"`
}

func newForm() Form {
	return Form{Country: DefaultCountry, PaymentMethod: "credit_card"}
}

func (f *Form) field(name string) (*string, bool) {
	switch name {
	case "customer_name":
		return &f.CustomerName, true
	case "customer_email":
		return &f.CustomerEmail, true
	case "shipping_address":
		return &f.ShippingAddress, true
	case "city":
		return &f.City, true
	case "state":
		return &f.State, true
	case "zip_code":
		return &f.ZipCode, true
	case "country":
		return &f.Country, true
	case "payment_method":
		return &f.PaymentMethod, true
	case "card_number":
		return &f.CardNumber, true
	case "expiry_date":
		return &f.ExpiryDate, true
	case "cvv":
		return &f.CVV, true
	case "cardholder_name":
		return &f.CardholderName, true
	}
	return nil, false
}

// AddressLine joins the shipping fields into the single line the order
// service stores.
func (f Form) AddressLine() string {
	country := f.Country
	if country == "" {
		country = DefaultCountry
	}
	return fmt.Sprintf("%s, %s, %s %s, %s", f.ShippingAddress, f.City, f.State, f.ZipCode, country)
}

// Masked returns a copy safe to render back to the browser: only the last four
// card digits survive and the CVV is blanked.
func (f Form) Masked() Form {
	if n := len(f.CardNumber); n > 4 {
		f.CardNumber = "**** " + f.CardNumber[n-4:]
	}
	if f.CVV != "" {
		f.CVV = "***"
	}
	return f
}
