package mail

import "golang.org/x/text/language"

// labels holds every localised string rendered into email subjects and bodies.
type labels struct {
	ConfirmationSubject string
	InvoiceSubject      string
	Greeting            string
	ConfirmationIntro   string
	InvoiceIntro        string
	ProductHeader       string
	QuantityHeader      string
	TotalHeader         string
	SubtotalLabel       string
	ShippingLabel       string
	TotalLabel          string
	FreeShipping        string
	DeliveryLabel       string
	PaymentLabel        string
	OrderNumberLabel    string
	InvoiceNumberLabel  string
	Signoff             string
}

var supported = []language.Tag{
	language.English, // fallback
	language.Bulgarian,
}

var matcher = language.NewMatcher(supported)

var labelSets = map[language.Tag]labels{
	language.English: {
		ConfirmationSubject: "Order Confirmation - Sofia Padel",
		InvoiceSubject:      "Your Sofia Padel order has been shipped",
		Greeting:            "Hello",
		ConfirmationIntro:   "Thank you for your order! Here is your summary:",
		InvoiceIntro:        "Thank you for your purchase! Your invoice is attached.",
		ProductHeader:       "Product",
		QuantityHeader:      "Qty",
		TotalHeader:         "Total",
		SubtotalLabel:       "Subtotal",
		ShippingLabel:       "Shipping",
		TotalLabel:          "Total",
		FreeShipping:        "FREE",
		DeliveryLabel:       "Delivery",
		PaymentLabel:        "Payment",
		OrderNumberLabel:    "Order number",
		InvoiceNumberLabel:  "Invoice number",
		Signoff:             "The Sofia Padel team",
	},
	language.Bulgarian: {
		ConfirmationSubject: "Потвърждение на поръчка - Sofia Padel",
		InvoiceSubject:      "Вашата поръчка от Sofia Padel е изпратена",
		Greeting:            "Здравейте",
		ConfirmationIntro:   "Благодарим за поръчката! Ето нейното резюме:",
		InvoiceIntro:        "Благодарим за покупката! Фактурата е прикачена.",
		ProductHeader:       "Продукт",
		QuantityHeader:      "Бр.",
		TotalHeader:         "Сума",
		SubtotalLabel:       "Междинна сума",
		ShippingLabel:       "Доставка",
		TotalLabel:          "Общо",
		FreeShipping:        "БЕЗПЛАТНА",
		DeliveryLabel:       "Доставка",
		PaymentLabel:        "Плащане",
		OrderNumberLabel:    "Номер на поръчка",
		InvoiceNumberLabel:  "Номер на фактура",
		Signoff:             "Екипът на Sofia Padel",
	},
}

// localize resolves the label set for a requested language, falling back to
// English for anything the store does not speak.
func localize(lang string) labels {
	_, index := language.MatchStrings(matcher, lang)
	return labelSets[supported[index]]
}
