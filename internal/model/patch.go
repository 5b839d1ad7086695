package model

// ProjectPatch is a partial project update; nil fields are left untouched.
type ProjectPatch struct {
	Title            *string `json:"title,omitempty"`
	Customer         *string `json:"customer,omitempty"`
	Remarks          *string `json:"remarks,omitempty"`
	Category         *string `json:"category,omitempty"`
	ConstructionType *string `json:"constructionType,omitempty"`

	StartDate           *Date `json:"startDate,omitempty"`
	EndDate             *Date `json:"endDate,omitempty"`
	AssemblyStartDate   *Date `json:"assemblyStartDate,omitempty"`
	AssemblyDuration    *int  `json:"assemblyDuration,omitempty"`
	DemolitionStartDate *Date `json:"demolitionStartDate,omitempty"`
	DemolitionDuration  *int  `json:"demolitionDuration,omitempty"`

	AssignedEmployeeID *string `json:"assignedEmployeeId,omitempty"`
	SortOrder          *int    `json:"sortOrder,omitempty"`

	Workers  *[]string `json:"workers,omitempty"`
	Trucks   *[]string `json:"trucks,omitempty"`
	Dispatch *Dispatch `json:"dispatch,omitempty"`
}

type ProjectUpdate struct {
	ID    string       `json:"id"`
	Patch ProjectPatch `json:"patch"`
}

func (p ProjectPatch) IsEmpty() bool {
	return p == ProjectPatch{}
}

// Apply writes every set field of p onto pr.
func (p ProjectPatch) Apply(pr *Project) {
	if pr == nil {
		return
	}
	if p.Title != nil {
		pr.Title = *p.Title
	}
	if p.Customer != nil {
		pr.Customer = *p.Customer
	}
	if p.Remarks != nil {
		pr.Remarks = *p.Remarks
	}
	if p.Category != nil {
		pr.Category = *p.Category
	}
	if p.ConstructionType != nil {
		pr.ConstructionType = *p.ConstructionType
	}
	if p.StartDate != nil {
		pr.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		pr.EndDate = *p.EndDate
	}
	if p.AssemblyStartDate != nil {
		pr.AssemblyStartDate = *p.AssemblyStartDate
	}
	if p.AssemblyDuration != nil {
		pr.AssemblyDuration = *p.AssemblyDuration
	}
	if p.DemolitionStartDate != nil {
		pr.DemolitionStartDate = *p.DemolitionStartDate
	}
	if p.DemolitionDuration != nil {
		pr.DemolitionDuration = *p.DemolitionDuration
	}
	if p.AssignedEmployeeID != nil {
		pr.AssignedEmployeeID = *p.AssignedEmployeeID
	}
	if p.SortOrder != nil {
		pr.SortOrder = *p.SortOrder
	}
	if p.Workers != nil {
		pr.Workers = cloneStrings(*p.Workers)
	}
	if p.Trucks != nil {
		pr.Trucks = cloneStrings(*p.Trucks)
	}
	if p.Dispatch != nil {
		d := *p.Dispatch
		d.WorkerIDs = cloneStrings(p.Dispatch.WorkerIDs)
		d.VehicleIDs = cloneStrings(p.Dispatch.VehicleIDs)
		pr.Dispatch = &d
	}
}

// Merge returns p with every field set in o overriding p's value.
func (p ProjectPatch) Merge(o ProjectPatch) ProjectPatch {
	out := p
	if o.Title != nil {
		out.Title = o.Title
	}
	if o.Customer != nil {
		out.Customer = o.Customer
	}
	if o.Remarks != nil {
		out.Remarks = o.Remarks
	}
	if o.Category != nil {
		out.Category = o.Category
	}
	if o.ConstructionType != nil {
		out.ConstructionType = o.ConstructionType
	}
	if o.StartDate != nil {
		out.StartDate = o.StartDate
	}
	if o.EndDate != nil {
		out.EndDate = o.EndDate
	}
	if o.AssemblyStartDate != nil {
		out.AssemblyStartDate = o.AssemblyStartDate
	}
	if o.AssemblyDuration != nil {
		out.AssemblyDuration = o.AssemblyDuration
	}
	if o.DemolitionStartDate != nil {
		out.DemolitionStartDate = o.DemolitionStartDate
	}
	if o.DemolitionDuration != nil {
		out.DemolitionDuration = o.DemolitionDuration
	}
	if o.AssignedEmployeeID != nil {
		out.AssignedEmployeeID = o.AssignedEmployeeID
	}
	if o.SortOrder != nil {
		out.SortOrder = o.SortOrder
	}
	if o.Workers != nil {
		out.Workers = o.Workers
	}
	if o.Trucks != nil {
		out.Trucks = o.Trucks
	}
	if o.Dispatch != nil {
		out.Dispatch = o.Dispatch
	}
	return out
}
