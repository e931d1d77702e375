package core

// DateFormatMedium is the default display pattern for dates.
const DateFormatMedium = "MMM dd, yyyy"

const DefaultCurrencyCode = "USD"

// PaymentMethodTemplate is a starting point offered when creating a payment method.
type PaymentMethodTemplate struct {
	Type  PaymentMethodType
	Name  string
	Icon  string
	Color string
}

// DefaultCurrencies returns the built-in currency set. The storage seed
// migrations insert the same rows.
func DefaultCurrencies() []Currency {
	return []Currency{
		{Code: "USD", Symbol: "$", Name: "US Dollar"},
		{Code: "EUR", Symbol: "€", Name: "Euro"},
		{Code: "GBP", Symbol: "£", Name: "British Pound"},
		{Code: "JPY", Symbol: "¥", Name: "Japanese Yen"},
		{Code: "CAD", Symbol: "C$", Name: "Canadian Dollar"},
		{Code: "AUD", Symbol: "A$", Name: "Australian Dollar"},
		{Code: "CHF", Symbol: "CHF", Name: "Swiss Franc"},
		{Code: "CNY", Symbol: "¥", Name: "Chinese Yuan"},
		{Code: "INR", Symbol: "₹", Name: "Indian Rupee"},
	}
}

// DefaultCategories returns the built-in root categories.
func DefaultCategories() []Category {
	return []Category{
		{ID: "food", Name: "Food & Dining", Color: "#FF6B6B", Icon: "🍽️"},
		{ID: "groceries", Name: "Groceries", Color: "#4ECDC4", Icon: "🛒"},
		{ID: "transportation", Name: "Transportation", Color: "#45B7D1", Icon: "🚗"},
		{ID: "utilities", Name: "Utilities", Color: "#96CEB4", Icon: "💡"},
		{ID: "entertainment", Name: "Entertainment", Color: "#FFEAA7", Icon: "🎬"},
		{ID: "healthcare", Name: "Healthcare", Color: "#DDA0DD", Icon: "🏥"},
		{ID: "shopping", Name: "Shopping", Color: "#FAB1A0", Icon: "🛍️"},
		{ID: "education", Name: "Education", Color: "#74B9FF", Icon: "📚"},
		{ID: "travel", Name: "Travel", Color: "#A29BFE", Icon: "✈️"},
		{ID: "housing", Name: "Housing & Rent", Color: "#6C5CE7", Icon: "🏠"},
		{ID: "insurance", Name: "Insurance", Color: "#FD79A8", Icon: "🛡️"},
		{ID: "gifts", Name: "Gifts & Donations", Color: "#FDCB6E", Icon: "🎁"},
		{ID: "fitness", Name: "Fitness & Sports", Color: "#00B894", Icon: "💪"},
		{ID: "personal-care", Name: "Personal Care", Color: "#E17055", Icon: "💅"},
		{ID: "business", Name: "Business", Color: "#2D3436", Icon: "💼"},
		{ID: "other", Name: "Other", Color: "#636E72", Icon: "📄"},
	}
}

// DefaultUserPreferences is used when nothing has been stored yet.
func DefaultUserPreferences() UserPreferences {
	return UserPreferences{
		DefaultCurrency: DefaultCurrencies()[0],
		Theme:           ThemeSystem,
		Language:        "en",
		DateFormat:      DateFormatMedium,
		FirstDayOfWeek:  0,
	}
}

func DefaultPaymentMethodTemplates() []PaymentMethodTemplate {
	return []PaymentMethodTemplate{
		{Type: PaymentCash, Name: "Cash", Icon: "💵", Color: "#00B894"},
		{Type: PaymentCreditCard, Name: "Credit Card", Icon: "💳", Color: "#0984e3"},
		{Type: PaymentDebitCard, Name: "Debit Card", Icon: "💳", Color: "#6c5ce7"},
		{Type: PaymentBankTransfer, Name: "Bank Transfer", Icon: "🏦", Color: "#fd79a8"},
		{Type: PaymentDigitalWallet, Name: "Digital Wallet", Icon: "📱", Color: "#e17055"},
		{Type: PaymentOther, Name: "Other", Icon: "💰", Color: "#636e72"},
	}
}
