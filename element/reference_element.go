package element

// ElementProperties contains metadata describing an element type
type ElementProperties struct {
	Name       string          // Full descriptive name (e.g., "DPG Quadrilateral k=1 delta=1")
	ShortName  string          // Abbreviated name (e.g., "DPGQ1_1")
	Type       ElementGeometry // Element shape
	Order      int             // Trial space polynomial order
	TestOrder  int             // Test space polynomial order
	NInterior  int             // Interior trial dofs per cell
	NSkeleton  int             // Skeleton trial dofs per cell
	NTest      int             // Test dofs per cell
	NFaces     int             // Number of faces in each element
	Dimensions Dimensionality  // Spatial dimension
}

// ReferenceGeometry defines the topology of the reference square
type ReferenceGeometry struct {
	R, S         []float64 // Vertex coordinates
	FaceVertices [][2]int  // [face][start, end]
	Nx, Ny       []float64 // Outward face normals
}

// ReferenceElement defines element properties in reference space
type ReferenceElement interface {
	GetProperties() ElementProperties
	GetReferenceGeometry() ReferenceGeometry
}

func QuadReferenceGeometry() ReferenceGeometry {
	rg := ReferenceGeometry{
		R:            make([]float64, NVertices),
		S:            make([]float64, NVertices),
		FaceVertices: make([][2]int, NFaces),
		Nx:           make([]float64, NFaces),
		Ny:           make([]float64, NFaces),
	}
	for v, rs := range QuadVertices {
		rg.R[v], rg.S[v] = rs[0], rs[1]
	}
	for f := 0; f < NFaces; f++ {
		rg.FaceVertices[f] = FaceVertices[f]
		rg.Nx[f], rg.Ny[f] = FaceNormals[f][0], FaceNormals[f][1]
	}
	return rg
}
