package writer

import (
	"errors"

	decoder "github.com/psi46/hrdecoder_go/pkg"
	"gonum.org/v1/hdf5"
)

type PassSummaryHDF5 struct {
	test               int32
	pass               int32
	events             int32
	truncated          int32
	badAddress         int32
	sequenceViolations int32
	decodingErrors     int32
	strayWords         int32
	lostTriggers       int32
	hits               int64
}

func openFile(fname string) (*hdf5.File, error) {
	f, err := hdf5.CreateFile(fname, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, &ErrOpenFile{Filename: fname, Err: err}
	}
	return f, nil
}

func createGroup(file *hdf5.File, groupName string) (*hdf5.Group, error) {
	g, err := file.CreateGroup(groupName)
	if err != nil {
		return nil, &ErrCreateGroup{GroupName: groupName, Err: err}
	}
	return g, nil
}

func datasetPropList(dims []uint, compressionLevel int) (*hdf5.PropList, error) {
	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, err
	}
	if compressionLevel <= 0 {
		return plist, nil
	}
	if err := plist.SetChunk(dims); err != nil {
		return nil, errors.Join(err, plist.Close())
	}
	if err := plist.SetDeflate(compressionLevel); err != nil {
		return nil, errors.Join(err, plist.Close())
	}
	return plist, nil
}

func createDataset(group *hdf5.Group, name string, dtype *hdf5.Datatype, dims []uint, compressionLevel int) (*hdf5.Dataset, error) {
	space, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return nil, &ErrCreateDataset{DatasetName: name, Err: err}
	}
	defer space.Close()

	plist, err := datasetPropList(dims, compressionLevel)
	if err != nil {
		return nil, &ErrCreateDataset{DatasetName: name, Err: err}
	}
	defer plist.Close()

	dset, err := group.CreateDatasetWith(name, dtype, space, plist)
	if err != nil {
		return nil, &ErrCreateDataset{DatasetName: name, Err: err}
	}
	return dset, nil
}

func writeAttribute[T int64 | float64](dset *hdf5.Dataset, name string, value T) error {
	dtype := hdf5.T_NATIVE_INT64
	if _, ok := any(value).(float64); ok {
		dtype = hdf5.T_NATIVE_DOUBLE
	}
	space, err := hdf5.CreateDataspace(hdf5.S_SCALAR)
	if err != nil {
		return err
	}
	defer space.Close()
	attr, err := dset.CreateAttribute(name, dtype, space)
	if err != nil {
		return err
	}
	return errors.Join(attr.Write(&value, dtype), attr.Close())
}

// writeMap stores a map as a cols x rows dataset; the column-major layout
// of Map2D is the row-major layout of that dataset.
func writeMap[T decoder.Number](group *hdf5.Group, m *decoder.Map2D[T], compressionLevel int) error {
	dims := []uint{uint(m.Cols), uint(m.Rows)}

	var data any
	var dtype *hdf5.Datatype
	switch any(m.Data).(type) {
	case []float64, []float32:
		values := make([]float64, len(m.Data))
		for i, v := range m.Data {
			values[i] = float64(v)
		}
		data, dtype = &values, hdf5.T_NATIVE_DOUBLE
	default:
		values := make([]int64, len(m.Data))
		for i, v := range m.Data {
			values[i] = int64(v)
		}
		data, dtype = &values, hdf5.T_NATIVE_INT64
	}

	dset, err := createDataset(group, m.Name, dtype, dims, compressionLevel)
	if err != nil {
		return err
	}
	if err := dset.Write(data); err != nil {
		return errors.Join(&ErrCreateDataset{DatasetName: m.Name, Err: err}, dset.Close())
	}
	if err := writeAttribute(dset, "entries", m.Entries); err != nil {
		return errors.Join(&ErrCreateDataset{DatasetName: m.Name, Err: err}, dset.Close())
	}
	return dset.Close()
}

func writeDist(group *hdf5.Group, d *decoder.Dist1D, compressionLevel int) error {
	dims := []uint{uint(len(d.Counts))}
	dset, err := createDataset(group, d.Name, hdf5.T_NATIVE_INT64, dims, compressionLevel)
	if err != nil {
		return err
	}
	counts := d.Counts
	errs := []error{dset.Write(&counts)}
	errs = append(errs,
		writeAttribute(dset, "entries", d.Entries),
		writeAttribute(dset, "underflow", d.Underflow),
		writeAttribute(dset, "overflow", d.Overflow),
		writeAttribute(dset, "low", d.Low),
		writeAttribute(dset, "width", d.Width),
	)
	if err := errors.Join(errs...); err != nil {
		return errors.Join(&ErrCreateDataset{DatasetName: d.Name, Err: err}, dset.Close())
	}
	return dset.Close()
}

func createTable(group *hdf5.Group, name string, datatype interface{}) (*hdf5.Dataset, error) {
	dims := []uint{0}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDims := []uint{uint(unlimitedDims)}
	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, &ErrCreateDataset{DatasetName: name, Err: err}
	}
	defer fileSpace.Close()

	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, &ErrCreateDataset{DatasetName: name, Err: err}
	}
	defer plist.Close()
	if err := plist.SetChunk([]uint{1024}); err != nil {
		return nil, &ErrCreateDataset{DatasetName: name, Err: err}
	}

	dtype, err := hdf5.NewDatatypeFromValue(datatype)
	if err != nil {
		return nil, &ErrCreateDataset{DatasetName: name, Err: err}
	}

	dset, err := group.CreateDatasetWith(name, dtype, fileSpace, plist)
	if err != nil {
		return nil, &ErrCreateDataset{DatasetName: name, Err: err}
	}
	return dset, nil
}

func writeEntryToTable[T any](dataset *hdf5.Dataset, data T, row int) error {
	array := []T{data}
	dims := []uint{1}
	dataspace, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return err
	}
	defer dataspace.Close()

	// extend
	if err := dataset.Resize([]uint{uint(row) + 1}); err != nil {
		return err
	}
	filespace := dataset.Space()
	defer filespace.Close()

	start := []uint{uint(row)}
	if err := filespace.SelectHyperslab(start, nil, dims, nil); err != nil {
		return err
	}
	return dataset.WriteSubset(&array, dataspace, filespace)
}
