package models

// AddressMetadata represents the enrichment record for a single address.
// Rows are written by the enrichment worker; the graph pipeline only reads
// them. All contract fields are null for EOAs and for addresses that have not
// been enriched yet.
type AddressMetadata struct {
	Address              string  `json:"address"`
	IsContract           bool    `json:"is_contract"`
	IsProxy              bool    `json:"is_proxy"`
	IsVerified           bool    `json:"is_verified"`
	ContractBytecode     []byte  `json:"-"`
	ContractSourceCode   *string `json:"contract_source_code,omitempty"`
	ContractABI          *string `json:"contract_abi,omitempty"`
	ContractName         *string `json:"contract_name"`
	CompilerVersion      *string `json:"compiler_version"`
	ConstructorArguments *string `json:"-"`
	LicenseType          *string `json:"license_type"`
	ProtocolID           *int64  `json:"protocol_id"`
	ProtocolName         *string `json:"protocol_name"`
}

// EmptyMetadata returns an all-null metadata entry for an address the store
// has never seen. Callers rely on every graph address having a metadata key.
func EmptyMetadata(address string) *AddressMetadata {
	return &AddressMetadata{Address: address}
}
