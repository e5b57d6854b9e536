package models

// GetAssetRequest binds the single-asset read path.
type GetAssetRequest struct {
	Key string `param:"key" validate:"required,min=1,max=64"`
}

// ListAssetsRequest binds optional filters on the list endpoint.
type ListAssetsRequest struct {
	Signal string `query:"signal" validate:"omitempty,oneof=overbought oversold neutral"`
	Fresh  bool   `query:"fresh"`
}
