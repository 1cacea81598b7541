package common

// AccountResolver maps a requested account onto a configured one.
type AccountResolver interface {
	ResolveAccount(account string) string
}

// GetAccountFromArgs returns the account named by the "account" argument,
// resolved through r. An absent or empty argument selects the configured
// default account.
func GetAccountFromArgs(r AccountResolver, args map[string]any) string {
	account, _ := args["account"].(string)
	return r.ResolveAccount(account)
}
