// Package service wraps the MI transactions used by the IONCON screen. Each
// method shapes one flat request and forwards it to the gateway; responses
// and errors are passed through unchanged.
package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/matthewbaird/ioncon/internal/mi"
	"github.com/matthewbaird/ioncon/internal/types"
)

// MI programs and transactions.
const (
	ProgramExtension = "CUSEXTMI"
	ProgramAuthority = "MDBREADMI"
	ProgramDivision  = "MNS100MI"
	ProgramWarehouse = "MMS005MI"
	ProgramFacility  = "CRS008MI"
	ProgramCustomer  = "CRS610MI"

	TxSelAuthority  = "SelCMNPUS30"
	TxListAlpha     = "LstAlphaKPI"
	TxGetAlpha      = "GetAlphaKPI"
	TxGetNumeric    = "GetNumericKPI"
	TxAddAlpha      = "AddAlphaKPI"
	TxAddNumeric    = "AddNumericKPI"
	TxChangeAlpha   = "ChgAlphaKPI"
	TxChangeNumeric = "ChgNumericKPI"
	TxDeleteAlpha   = "DelAlphaKPI"
	TxDeleteNumeric = "DelNumericKPI"
	TxListDivisions = "LstDivisions"
	TxListWarehouse = "LstWarehouses"
	TxListFacility  = "ListFacility"
	TxListCustomers = "LstByName"
)

// RecordService issues the IONCON transactions.
type RecordService struct {
	gw  mi.Gateway
	log *zap.Logger
}

// NewRecordService creates a RecordService on top of gw.
func NewRecordService(gw mi.Gateway, log *zap.Logger) *RecordService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RecordService{gw: gw, log: log.Named("service")}
}

// CheckAuthority reports whether user holds the authority bit at position bit
// for program. An empty result for the division is retried once without it.
func (s *RecordService) CheckAuthority(ctx context.Context, company, division, user, program string, bit int) (bool, error) {
	req := mi.Request{
		"DIVI": division,
		"USID": user,
		"PGNM": program,
	}
	resp, err := s.gw.Execute(ctx, ProgramAuthority, TxSelAuthority, req)
	if err != nil {
		return false, err
	}
	if resp.Empty() {
		req = req.Clone()
		req["DIVI"] = ""
		s.log.Debug("no division authority, retrying company wide",
			zap.String("company", company), zap.String("user", user), zap.String("program", program))
		resp, err = s.gw.Execute(ctx, ProgramAuthority, TxSelAuthority, req)
		if err != nil {
			return false, err
		}
		if resp.Empty() {
			return false, nil
		}
	}
	return HasAuthorityBit(resp.Item["ALO"], bit), nil
}

// HasAuthorityBit reports whether alo has '1' at position bit.
func HasAuthorityBit(alo string, bit int) bool {
	return bit >= 0 && bit < len(alo) && alo[bit] == '1'
}

// List returns every row the list transaction yields for the IONCON
// discriminator. Rows of other tables may be included; callers filter.
func (s *RecordService) List(ctx context.Context) (*mi.Response, error) {
	return s.gw.Execute(ctx, ProgramExtension, TxListAlpha, mi.Request{"KPID": types.KPID})
}

// TableNames lists the IONCON table rows. It is the same call as List.
func (s *RecordService) TableNames(ctx context.Context) (*mi.Response, error) {
	return s.gw.Execute(ctx, ProgramExtension, TxListAlpha, mi.Request{"KPID": types.KPID})
}

// GetAlpha reads the alpha record of a key.
func (s *RecordService) GetAlpha(ctx context.Context, pk01, pk02, pk03 string) (*mi.Response, error) {
	key := types.Key{PK01: pk01, PK02: pk02, PK03: pk03}
	return s.gw.Execute(ctx, ProgramExtension, TxGetAlpha, key.Fields())
}

// GetNumeric reads the numeric record of a key.
func (s *RecordService) GetNumeric(ctx context.Context, pk01, pk02, pk03 string) (*mi.Response, error) {
	key := types.Key{PK01: pk01, PK02: pk02, PK03: pk03}
	return s.gw.Execute(ctx, ProgramExtension, TxGetNumeric, key.Fields())
}

// AddAlpha creates the alpha record of key. The payload is sent as given.
func (s *RecordService) AddAlpha(ctx context.Context, key types.Key, alpha types.Alpha) (*mi.Response, error) {
	return s.gw.Execute(ctx, ProgramExtension, TxAddAlpha, merge(key.Fields(), alpha.Fields()))
}

// AddNumeric creates the numeric record of key.
func (s *RecordService) AddNumeric(ctx context.Context, key types.Key, numeric types.Numeric) (*mi.Response, error) {
	return s.gw.Execute(ctx, ProgramExtension, TxAddNumeric, merge(key.Fields(), numeric.Fields()))
}

// ChangeAlpha updates the alpha record of key.
func (s *RecordService) ChangeAlpha(ctx context.Context, key types.Key, alpha types.Alpha) (*mi.Response, error) {
	return s.gw.Execute(ctx, ProgramExtension, TxChangeAlpha, merge(key.Fields(), alpha.Fields()))
}

// ChangeNumeric updates the numeric record of key.
func (s *RecordService) ChangeNumeric(ctx context.Context, key types.Key, numeric types.Numeric) (*mi.Response, error) {
	return s.gw.Execute(ctx, ProgramExtension, TxChangeNumeric, merge(key.Fields(), numeric.Fields()))
}

// DeleteAlpha removes the alpha record. pk04 is accepted for symmetry with
// the record layout but is not part of the request.
func (s *RecordService) DeleteAlpha(ctx context.Context, pk01, pk02, pk03, pk04 string) (*mi.Response, error) {
	key := types.Key{PK01: pk01, PK02: pk02, PK03: pk03}
	return s.gw.Execute(ctx, ProgramExtension, TxDeleteAlpha, key.Fields())
}

// DeleteNumeric removes the numeric record. pk04 is not transmitted.
func (s *RecordService) DeleteNumeric(ctx context.Context, pk01, pk02, pk03, pk04 string) (*mi.Response, error) {
	key := types.Key{PK01: pk01, PK02: pk02, PK03: pk03}
	return s.gw.Execute(ctx, ProgramExtension, TxDeleteNumeric, key.Fields())
}

// Divisions lists the divisions of a company.
func (s *RecordService) Divisions(ctx context.Context, company, division string) (*mi.Response, error) {
	return s.gw.Execute(ctx, ProgramDivision, TxListDivisions, mi.Request{"CONO": company, "DIVI": division})
}

// Warehouses lists every warehouse of a company.
func (s *RecordService) Warehouses(ctx context.Context, company string) (*mi.Response, error) {
	return s.gw.Execute(ctx, ProgramWarehouse, TxListWarehouse, mi.Request{"CONO": company}, mi.MaxRecords(0))
}

// Facilities lists the facilities of a division.
func (s *RecordService) Facilities(ctx context.Context, company, division string) (*mi.Response, error) {
	return s.gw.Execute(ctx, ProgramFacility, TxListFacility, mi.Request{"CONO": company, "DIVI": division})
}

// Customers lists customers by name.
func (s *RecordService) Customers(ctx context.Context, company string) (*mi.Response, error) {
	return s.gw.Execute(ctx, ProgramCustomer, TxListCustomers, mi.Request{"CONO": company})
}

func merge(parts ...mi.Request) mi.Request {
	out := mi.Request{}
	for _, p := range parts {
		for k, v := range p {
			out[k] = v
		}
	}
	return out
}
