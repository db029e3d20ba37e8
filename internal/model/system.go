package model

// SystemStatus reports the application and schema versions and the size of
// the stored ledger.
type SystemStatus struct {
	AppVersion   string `json:"app_version"`
	DbVersion    int64  `json:"db_version"`
	Wallets      int    `json:"wallets"`
	Transactions int    `json:"transactions"`
	TaxRecords   int    `json:"tax_records"`
}
