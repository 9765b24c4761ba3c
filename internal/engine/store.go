package engine

import (
	"encoding/binary"
	"math"
	"sort"
	"strings"
	"time"

	"ecomdash/internal/models"

	"github.com/zeebo/xxh3"
)

const secondsPerDay = 86400

// ColumnStore holds orders in Struct-of-Arrays format, sorted by approval time.
// A store is never mutated once built; Filter returns views sharing its dictionaries.
type ColumnStore struct {
	// Data Columns (Flat Arrays), timestamps in unix seconds
	Approved []int64
	Payments []float64

	// Lifecycle columns (0 = missing)
	Purchased         []int64
	DeliveredCarrier  []int64
	DeliveredCustomer []int64
	Estimated         []int64
	ShippingLimit     []int64

	// Dictionary Encoded IDs (0..N), -1 when the value is missing
	OrderIDs    []int32
	CustomerIDs []int32
	StateIDs    []int32
	ProductIDs  []int32
	CategoryIDs []int32

	// Dictionaries (ID -> String)
	OrderDict    []string
	CustomerDict []string
	StateDict    []string
	ProductDict  []string
	CategoryDict []string

	// rows [0:dated) carry an approval timestamp
	dated       int
	fingerprint uint64
}

func (cs *ColumnStore) Len() int { return len(cs.Payments) }

// Dated reports how many leading rows carry an approval timestamp.
func (cs *ColumnStore) Dated() int { return cs.dated }

func (cs *ColumnStore) Fingerprint() uint64 { return cs.fingerprint }

// Span returns the calendar days of the first and last approved order.
func (cs *ColumnStore) Span() (models.DateRange, bool) {
	if cs.dated == 0 {
		return models.DateRange{}, false
	}
	return models.DateRange{
		Start: dayStart(dayOf(cs.Approved[0])),
		End:   dayStart(dayOf(cs.Approved[cs.dated-1])),
	}, true
}

// Filter keeps rows with start <= approved <= end. Both bounds are compared as
// given, so a midnight end bound excludes the rest of that day.
func (cs *ColumnStore) Filter(start, end time.Time) *ColumnStore {
	lo := sort.Search(cs.dated, func(i int) bool { return cs.Approved[i] >= start.Unix() })
	hi := sort.Search(cs.dated, func(i int) bool { return cs.Approved[i] > end.Unix() })
	if hi < lo {
		hi = lo
	}
	return cs.slice(lo, hi)
}

func (cs *ColumnStore) slice(lo, hi int) *ColumnStore {
	return &ColumnStore{
		Approved:          cs.Approved[lo:hi:hi],
		Payments:          cs.Payments[lo:hi:hi],
		Purchased:         cs.Purchased[lo:hi:hi],
		DeliveredCarrier:  cs.DeliveredCarrier[lo:hi:hi],
		DeliveredCustomer: cs.DeliveredCustomer[lo:hi:hi],
		Estimated:         cs.Estimated[lo:hi:hi],
		ShippingLimit:     cs.ShippingLimit[lo:hi:hi],
		OrderIDs:          cs.OrderIDs[lo:hi:hi],
		CustomerIDs:       cs.CustomerIDs[lo:hi:hi],
		StateIDs:          cs.StateIDs[lo:hi:hi],
		ProductIDs:        cs.ProductIDs[lo:hi:hi],
		CategoryIDs:       cs.CategoryIDs[lo:hi:hi],
		OrderDict:         cs.OrderDict,
		CustomerDict:      cs.CustomerDict,
		StateDict:         cs.StateDict,
		ProductDict:       cs.ProductDict,
		CategoryDict:      cs.CategoryDict,
		dated:             hi - lo,
		fingerprint:       cs.fingerprint,
	}
}

// Row decodes row i back into a record.
func (cs *ColumnStore) Row(i int) models.OrderRecord {
	rec := models.OrderRecord{
		OrderID:             lookup(cs.OrderDict, cs.OrderIDs[i]),
		CustomerID:          lookup(cs.CustomerDict, cs.CustomerIDs[i]),
		State:               lookup(cs.StateDict, cs.StateIDs[i]),
		ProductID:           lookup(cs.ProductDict, cs.ProductIDs[i]),
		Category:            lookup(cs.CategoryDict, cs.CategoryIDs[i]),
		Payment:             cs.Payments[i],
		PurchasedAt:         fromUnix(cs.Purchased[i]),
		DeliveredCarrierAt:  fromUnix(cs.DeliveredCarrier[i]),
		DeliveredCustomerAt: fromUnix(cs.DeliveredCustomer[i]),
		EstimatedDeliveryAt: fromUnix(cs.Estimated[i]),
		ShippingLimitAt:     fromUnix(cs.ShippingLimit[i]),
	}
	if i < cs.dated {
		rec.ApprovedAt = time.Unix(cs.Approved[i], 0).UTC()
	}
	return rec
}

func lookup(dict []string, id int32) string {
	if id < 0 {
		return ""
	}
	return dict[id]
}

// --- BUILDER ---

type dict struct {
	index map[string]int32
	list  []string
}

func newDict() *dict {
	return &dict{index: make(map[string]int32)}
}

func (d *dict) id(s string) int32 {
	if s == "" {
		return -1
	}
	if id, ok := d.index[s]; ok {
		return id
	}
	// values may alias a reusable buffer, keep our own copy
	str := strings.Clone(s)
	id := int32(len(d.list))
	d.list = append(d.list, str)
	d.index[str] = id
	return id
}

// Builder accumulates records and produces a sorted ColumnStore.
type Builder struct {
	cs          *ColumnStore
	hasApproved []bool

	orders, customers, states, products, categories *dict
}

func NewBuilder(sizeHint int) *Builder {
	return &Builder{
		cs: &ColumnStore{
			Approved:          make([]int64, 0, sizeHint),
			Payments:          make([]float64, 0, sizeHint),
			Purchased:         make([]int64, 0, sizeHint),
			DeliveredCarrier:  make([]int64, 0, sizeHint),
			DeliveredCustomer: make([]int64, 0, sizeHint),
			Estimated:         make([]int64, 0, sizeHint),
			ShippingLimit:     make([]int64, 0, sizeHint),
			OrderIDs:          make([]int32, 0, sizeHint),
			CustomerIDs:       make([]int32, 0, sizeHint),
			StateIDs:          make([]int32, 0, sizeHint),
			ProductIDs:        make([]int32, 0, sizeHint),
			CategoryIDs:       make([]int32, 0, sizeHint),
		},
		hasApproved: make([]bool, 0, sizeHint),
		orders:      newDict(),
		customers:   newDict(),
		states:      newDict(),
		products:    newDict(),
		categories:  newDict(),
	}
}

func (b *Builder) Append(r models.OrderRecord) {
	cs := b.cs
	cs.Approved = append(cs.Approved, toUnix(r.ApprovedAt))
	b.hasApproved = append(b.hasApproved, !r.ApprovedAt.IsZero())
	cs.Payments = append(cs.Payments, r.Payment)
	cs.Purchased = append(cs.Purchased, toUnix(r.PurchasedAt))
	cs.DeliveredCarrier = append(cs.DeliveredCarrier, toUnix(r.DeliveredCarrierAt))
	cs.DeliveredCustomer = append(cs.DeliveredCustomer, toUnix(r.DeliveredCustomerAt))
	cs.Estimated = append(cs.Estimated, toUnix(r.EstimatedDeliveryAt))
	cs.ShippingLimit = append(cs.ShippingLimit, toUnix(r.ShippingLimitAt))
	cs.OrderIDs = append(cs.OrderIDs, b.orders.id(r.OrderID))
	cs.CustomerIDs = append(cs.CustomerIDs, b.customers.id(r.CustomerID))
	cs.StateIDs = append(cs.StateIDs, b.states.id(r.State))
	cs.ProductIDs = append(cs.ProductIDs, b.products.id(r.ProductID))
	cs.CategoryIDs = append(cs.CategoryIDs, b.categories.id(r.Category))
}

// Build sorts rows by approval time (undated rows last, input order kept on
// ties) and freezes the store. The builder must not be reused.
func (b *Builder) Build() *ColumnStore {
	cs := b.cs
	n := len(cs.Payments)

	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(i, j int) bool {
		a, c := perm[i], perm[j]
		if b.hasApproved[a] != b.hasApproved[c] {
			return b.hasApproved[a]
		}
		return cs.Approved[a] < cs.Approved[c]
	})

	dated := 0
	for _, ok := range b.hasApproved {
		if ok {
			dated++
		}
	}

	out := &ColumnStore{
		Approved:          permute(cs.Approved, perm),
		Payments:          permute(cs.Payments, perm),
		Purchased:         permute(cs.Purchased, perm),
		DeliveredCarrier:  permute(cs.DeliveredCarrier, perm),
		DeliveredCustomer: permute(cs.DeliveredCustomer, perm),
		Estimated:         permute(cs.Estimated, perm),
		ShippingLimit:     permute(cs.ShippingLimit, perm),
		OrderIDs:          permute(cs.OrderIDs, perm),
		CustomerIDs:       permute(cs.CustomerIDs, perm),
		StateIDs:          permute(cs.StateIDs, perm),
		ProductIDs:        permute(cs.ProductIDs, perm),
		CategoryIDs:       permute(cs.CategoryIDs, perm),
		OrderDict:         b.orders.list,
		CustomerDict:      b.customers.list,
		StateDict:         b.states.list,
		ProductDict:       b.products.list,
		CategoryDict:      b.categories.list,
		dated:             dated,
	}
	out.fingerprint = fingerprint(out)
	b.cs = nil
	return out
}

func permute[T any](col []T, perm []int) []T {
	out := make([]T, len(perm))
	for i, p := range perm {
		out[i] = col[p]
	}
	return out
}

// fingerprint hashes the row contents so responses can be tagged per dataset.
func fingerprint(cs *ColumnStore) uint64 {
	h := xxh3.New()
	var buf [8]byte
	for i := 0; i < cs.Len(); i++ {
		binary.LittleEndian.PutUint64(buf[:], uint64(cs.Approved[i]))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(cs.Payments[i]))
		h.Write(buf[:])
		binary.LittleEndian.PutUint32(buf[:4], uint32(cs.OrderIDs[i]))
		h.Write(buf[:4])
	}
	return h.Sum64()
}

// --- TIME HELPERS ---

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(s int64) time.Time {
	if s == 0 {
		return time.Time{}
	}
	return time.Unix(s, 0).UTC()
}

// dayOf floors a unix timestamp to its UTC day number.
func dayOf(unix int64) int64 {
	d := unix / secondsPerDay
	if unix%secondsPerDay < 0 {
		d--
	}
	return d
}

func dayStart(day int64) time.Time {
	return time.Unix(day*secondsPerDay, 0).UTC()
}
