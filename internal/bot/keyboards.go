package bot

// Reply keyboard button labels.
const (
	BtnSummary = "Сводка"
	BtnCoins   = "Монеты"
	BtnSupport = "Поддержать"
	BtnHelp    = "Помощь"
	BtnAdmin   = "Админ"
)

// Admin inline keyboard callback identifiers.
const (
	cbRunSummary   = "admin_run_summary"
	cbAnalytics    = "admin_analytics"
	cbUsers        = "admin_users"
	cbAddCoin      = "admin_add_coin"
	cbRemoveCoin   = "admin_remove_coin"
	cbCancel       = "admin_cancel"
	cbRemovePrefix = "rm_coin_"
)

// mainKeyboard builds the persistent reply keyboard; admins get an extra row.
func mainKeyboard(admin bool) *ReplyKeyboardMarkup {
	rows := [][]KeyboardButton{
		{{Text: BtnSummary}, {Text: BtnCoins}},
		{{Text: BtnSupport}, {Text: BtnHelp}},
	}
	if admin {
		rows = append(rows, []KeyboardButton{{Text: BtnAdmin}})
	}
	return &ReplyKeyboardMarkup{Keyboard: rows, ResizeKeyboard: true}
}

// adminKeyboard builds the admin panel inline keyboard.
func adminKeyboard() *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{
			{{Text: "Run Summary Now", CallbackData: cbRunSummary}},
			{{Text: "User Analytics", CallbackData: cbAnalytics}},
			{{Text: "Users List", CallbackData: cbUsers}},
			{{Text: "Add Coin", CallbackData: cbAddCoin}},
			{{Text: "Remove Coin", CallbackData: cbRemoveCoin}},
		},
	}
}
