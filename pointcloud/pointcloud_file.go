package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/edaniels/golog"
	"github.com/edaniels/lidario"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// PCDType is the encoding of the DATA section of a pcd file.
type PCDType int

// Supported DATA encodings. PCDCompressed is recognized but neither read nor written.
const (
	PCDAscii PCDType = iota
	PCDBinary
	PCDCompressed
)

// NewFromFile returns a pointcloud read in from the given file. pcd and las files are understood.
func NewFromFile(fn string, logger golog.Logger) (PointCloud, error) {
	cloud, _, err := NewFromFileWithViewpoint(fn, logger)
	return cloud, err
}

// NewFromFileWithViewpoint is NewFromFile that also returns the translation of the scan's viewpoint. las files
// carry no viewpoint, so theirs is the origin.
func NewFromFileWithViewpoint(fn string, logger golog.Logger) (PointCloud, r3.Vector, error) {
	var cloud PointCloud
	var viewpoint r3.Vector
	var err error
	switch filepath.Ext(fn) {
	case ".pcd":
		cloud, viewpoint, err = newFromPCDFile(fn)
	case ".las":
		cloud, err = NewFromLASFile(fn, logger)
	default:
		return nil, r3.Vector{}, errors.Errorf("do not know how to read file %q", fn)
	}
	if err != nil {
		return nil, r3.Vector{}, errors.Wrapf(err, "error reading %q", fn)
	}
	logger.Debugw("read point cloud", "file", fn, "points", cloud.Size(), "viewpoint", viewpoint)
	return cloud, viewpoint, nil
}

func newFromPCDFile(fn string) (_ PointCloud, _ r3.Vector, err error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, r3.Vector{}, err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return ReadPCDWithViewpoint(f)
}

// NewFromLASFile returns a point cloud from reading a LAS file. Each point's value is its return intensity; point
// formats with color keep it.
func NewFromLASFile(fn string, logger golog.Logger) (_ PointCloud, err error) {
	lf, err := lidario.NewLasFile(fn, "r")
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, lf.Close())
	}()

	pc := NewWithPrealloc(lf.Header.NumberPoints)
	for i := 0; i < lf.Header.NumberPoints; i++ {
		p, err := lf.LasPoint(i)
		if err != nil {
			return nil, err
		}
		data := p.PointData()

		dd := NewValueData(int(data.Intensity))
		if lf.Header.PointFormatID == 2 && p.RgbData() != nil {
			rgb := p.RgbData()
			dd.SetColor(color.NRGBA{uint8(rgb.Red / 256), uint8(rgb.Green / 256), uint8(rgb.Blue / 256), 255})
		}
		if err := pc.Set(r3.Vector{X: data.X, Y: data.Y, Z: data.Z}, dd); err != nil {
			return nil, err
		}
	}
	logger.Debugw("read las file", "file", fn, "points", pc.Size(), "format", lf.Header.PointFormatID)
	return pc, nil
}

// WriteToLASFile writes cloud to fn using point format 2 when the cloud has color and format 0 otherwise.
func WriteToLASFile(cloud PointCloud, fn string) (err error) {
	lf, err := lidario.NewLasFile(fn, "w")
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, lf.Close())
	}()

	meta := cloud.MetaData()
	pointFormatID := 0
	if meta.HasColor {
		pointFormatID = 2
	}
	if err := lf.AddHeader(lidario.LasHeader{PointFormatID: byte(pointFormatID)}); err != nil {
		return err
	}

	var lastErr error
	cloud.Iterate(0, 0, func(pos r3.Vector, d Data) bool {
		lastErr = lf.AddLasPoint(lasPoint(pos, d, meta.HasColor))
		return lastErr == nil
	})
	return lastErr
}

// lasPoint builds a single return of point format 0, or 2 when withColor is set. Uncolored points in a colored file
// are written white.
func lasPoint(pos r3.Vector, d Data, withColor bool) lidario.LasPointer {
	record := &lidario.PointRecord0{
		X:             pos.X,
		Y:             pos.Y,
		Z:             pos.Z,
		BitField:      lidario.PointBitField{Value: 1 | 1<<3}, // return 1 of 1
		PointSourceID: 1,
	}
	if d != nil && d.HasValue() {
		record.Intensity = uint16(max(0, min(d.Value(), math.MaxUint16)))
	}
	if !withColor {
		return record
	}

	rgb := &lidario.RgbData{Red: math.MaxUint16, Green: math.MaxUint16, Blue: math.MaxUint16}
	if d != nil && d.HasColor() {
		r, g, b := d.RGB255()
		rgb = &lidario.RgbData{Red: uint16(r) << 8, Green: uint16(g) << 8, Blue: uint16(b) << 8}
	}
	return &lidario.PointRecord2{PointRecord0: record, RGB: rgb}
}

func colorToPCDInt(d Data) int {
	if d == nil || !d.HasColor() {
		return 0
	}
	r, g, b := d.RGB255()
	return int(r)<<16 | int(g)<<8 | int(b)
}

// ToPCD writes the point cloud out in pcd format with a zero viewpoint. Coordinates are written as they are stored.
func ToPCD(cloud PointCloud, out io.Writer, outputType PCDType) error {
	if _, err := fmt.Fprintf(out, "VERSION .7\n"); err != nil {
		return err
	}
	hasColor := cloud.MetaData().HasColor
	fields := "FIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nCOUNT 1 1 1\n"
	if hasColor {
		fields = "FIELDS x y z rgb\nSIZE 4 4 4 4\nTYPE F F F U\nCOUNT 1 1 1 1\n"
	}
	if _, err := fmt.Fprint(out, fields); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(out, "WIDTH %d\nHEIGHT 1\nVIEWPOINT 0 0 0 1 0 0 0\nPOINTS %d\n", cloud.Size(), cloud.Size()); err != nil {
		return err
	}

	switch outputType {
	case PCDAscii:
		if _, err := fmt.Fprintf(out, "DATA ascii\n"); err != nil {
			return err
		}
	case PCDBinary:
		if _, err := fmt.Fprintf(out, "DATA binary\n"); err != nil {
			return err
		}
	case PCDCompressed:
		return errors.New("compressed pcd not yet supported")
	default:
		return fmt.Errorf("unsupported pcd data type %v", outputType)
	}

	var err error
	cloud.Iterate(0, 0, func(pos r3.Vector, d Data) bool {
		switch outputType {
		case PCDBinary:
			buf := make([]byte, 12, 16)
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(pos.X)))
			binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(pos.Y)))
			binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(pos.Z)))
			if hasColor {
				buf = binary.LittleEndian.AppendUint32(buf, uint32(colorToPCDInt(d)))
			}
			_, err = out.Write(buf)
		default:
			if hasColor {
				_, err = fmt.Fprintf(out, "%f %f %f %d\n", pos.X, pos.Y, pos.Z, colorToPCDInt(d))
			} else {
				_, err = fmt.Fprintf(out, "%f %f %f\n", pos.X, pos.Y, pos.Z)
			}
		}
		return err == nil
	})
	return err
}

func pcdIntToColor(c int) color.NRGBA {
	r := (c >> 16) & 0xFF
	g := (c >> 8) & 0xFF
	b := (c >> 0) & 0xFF
	return color.NRGBA{uint8(r), uint8(g), uint8(b), 255}
}

type pcdFieldType int

const (
	pcdPointOnly  pcdFieldType = 3
	pcdPointColor pcdFieldType = 4
)

type pcdHeader struct {
	fields    pcdFieldType
	size      []uint64
	valType   []string
	count     []uint64
	width     uint64
	height    uint64
	viewpoint r3.Vector
	points    uint64
	data      PCDType
}

const pcdCommentChar = "#"

var pcdHeaderFields = []string{"VERSION", "FIELDS", "SIZE", "TYPE", "COUNT", "WIDTH", "HEIGHT", "VIEWPOINT", "POINTS", "DATA"}

func parsePCDHeaderLine(line string, index int, header *pcdHeader) error {
	var err error
	name := pcdHeaderFields[index]
	field, value, _ := strings.Cut(line, " ")
	tokens := strings.Fields(value)
	if field != name {
		return fmt.Errorf("line is supposed to start with %s but is %s", name, line)
	}

	switch name {
	case "VERSION":
		if value != ".7" && value != "0.7" {
			return fmt.Errorf("unsupported pcd version %s", value)
		}
	case "FIELDS":
		switch strings.Join(tokens, " ") {
		case "x y z":
			header.fields = pcdPointOnly
		case "x y z rgb":
			header.fields = pcdPointColor
		default:
			return fmt.Errorf("unsupported pcd fields %s", value)
		}
	case "SIZE":
		if len(tokens) != int(header.fields) {
			return fmt.Errorf("unexpected number of fields in SIZE line")
		}
		header.size = make([]uint64, len(tokens))
		for i, token := range tokens {
			header.size[i], err = strconv.ParseUint(token, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid SIZE field %s", token)
			}
		}
	case "TYPE":
		if len(tokens) != int(header.fields) {
			return fmt.Errorf("unexpected number of fields in TYPE line")
		}
		header.valType = tokens
	case "COUNT":
		if len(tokens) != int(header.fields) {
			return fmt.Errorf("unexpected number of fields in COUNT line")
		}
		header.count = make([]uint64, len(tokens))
		for i, token := range tokens {
			header.count[i], err = strconv.ParseUint(token, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid COUNT field %s: %w", token, err)
			}
		}
	case "WIDTH":
		header.width, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid WIDTH field %s: %w", value, err)
		}
	case "HEIGHT":
		header.height, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid HEIGHT field %s: %w", value, err)
		}
	case "VIEWPOINT":
		if len(tokens) != 7 {
			return fmt.Errorf("unexpected number of fields in VIEWPOINT line. Expected 7, got %d", len(tokens))
		}
		var viewpoint [7]float64
		for i, token := range tokens {
			viewpoint[i], err = strconv.ParseFloat(token, 64)
			if err != nil {
				return fmt.Errorf("invalid VIEWPOINT field %s: %w", token, err)
			}
		}
		// the orientation quaternion is not needed to place a scan's origin
		header.viewpoint = r3.Vector{X: viewpoint[0], Y: viewpoint[1], Z: viewpoint[2]}
	case "POINTS":
		header.points, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid POINTS field %s: %w", value, err)
		}
		if header.points != header.width*header.height {
			return fmt.Errorf("POINTS field %d does not match WIDTH*HEIGHT %d", header.points, header.width*header.height)
		}
	case "DATA":
		switch value {
		case "ascii":
			header.data = PCDAscii
		case "binary":
			header.data = PCDBinary
		case "binary_compressed":
			header.data = PCDCompressed
		default:
			return fmt.Errorf("unsupported pcd data type %s", value)
		}
	}

	return nil
}

// ReadPCD reads a pcd file in ascii or binary form. Coordinates are taken as they are written, in meters.
func ReadPCD(in io.Reader) (PointCloud, error) {
	cloud, _, err := ReadPCDWithViewpoint(in)
	return cloud, err
}

// ReadPCDWithViewpoint is ReadPCD that also returns the translation of the VIEWPOINT header, which is where the sensor
// was when it took the scan.
func ReadPCDWithViewpoint(inRaw io.Reader) (PointCloud, r3.Vector, error) {
	header := pcdHeader{}
	in := bufio.NewReader(inRaw)
	headerLineCount := 0
	for headerLineCount < len(pcdHeaderFields) {
		line, err := in.ReadString('\n')
		if err != nil {
			return nil, r3.Vector{}, fmt.Errorf("error reading header line %d: %w", headerLineCount, err)
		}
		line, _, _ = strings.Cut(line, pcdCommentChar)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := parsePCDHeaderLine(line, headerLineCount, &header); err != nil {
			return nil, r3.Vector{}, err
		}
		headerLineCount++
	}

	var cloud PointCloud
	var err error
	switch header.data {
	case PCDAscii:
		cloud, err = readPCDAscii(in, header)
	case PCDBinary:
		cloud, err = readPCDBinary(in, header)
	case PCDCompressed:
		return nil, r3.Vector{}, errors.New("compressed pcd not yet supported")
	default:
		return nil, r3.Vector{}, fmt.Errorf("unsupported pcd data type %v", header.data)
	}
	if err != nil {
		return nil, r3.Vector{}, err
	}
	return cloud, header.viewpoint, nil
}

func readPCDAscii(in *bufio.Reader, header pcdHeader) (PointCloud, error) {
	pc := NewWithPrealloc(int(header.points))
	for i := 0; i < int(header.points); i++ {
		line, err := in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return nil, fmt.Errorf("error reading point %d: %w", i, err)
		}
		tokens := strings.Fields(line)
		if len(tokens) != int(header.fields) {
			return nil, fmt.Errorf("unexpected number of fields in point %d", i)
		}
		point := make([]float64, len(tokens))
		for j, token := range tokens {
			point[j], err = strconv.ParseFloat(token, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid point %d field %s: %w", i, token, err)
			}
		}
		pcPoint, data, err := readSliceToPoint(point, header)
		if err != nil {
			return nil, err
		}
		if err := pc.Set(pcPoint, data); err != nil {
			return nil, err
		}
	}
	return pc, nil
}

func readPCDBinary(in *bufio.Reader, header pcdHeader) (PointCloud, error) {
	for j := 0; j < int(header.fields); j++ {
		if header.size[j] != 4 {
			return nil, fmt.Errorf("unsupported binary field size %d", header.size[j])
		}
	}
	pc := NewWithPrealloc(int(header.points))
	buf := make([]byte, 4)
	for i := 0; i < int(header.points); i++ {
		pointBuf := make([]float64, int(header.fields))
		for j := 0; j < int(header.fields); j++ {
			if _, err := io.ReadFull(in, buf); err != nil {
				return nil, fmt.Errorf("error reading point %d: %w", i, err)
			}
			bits := binary.LittleEndian.Uint32(buf)
			switch {
			case j == 3:
				// packed rgb, whatever TYPE claims
				pointBuf[j] = float64(bits)
			case header.valType[j] == "F":
				pointBuf[j] = float64(math.Float32frombits(bits))
			case header.valType[j] == "I":
				pointBuf[j] = float64(int32(bits))
			default:
				pointBuf[j] = float64(bits)
			}
		}
		point, data, err := readSliceToPoint(pointBuf, header)
		if err != nil {
			return nil, err
		}
		if err := pc.Set(point, data); err != nil {
			return nil, err
		}
	}
	return pc, nil
}

func readSliceToPoint(slice []float64, header pcdHeader) (r3.Vector, Data, error) {
	pos := r3.Vector{X: slice[0], Y: slice[1], Z: slice[2]}
	switch header.fields {
	case pcdPointOnly:
		return pos, NewBasicData(), nil
	case pcdPointColor:
		return pos, NewColoredData(pcdIntToColor(int(slice[3]))), nil
	default:
		return r3.Vector{}, nil, fmt.Errorf("unsupported pcd field type %d", header.fields)
	}
}
