package predict

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rushteam/ratingkit/core"
	"github.com/rushteam/ratingkit/feature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource 内存数据源
type fakeSource struct {
	variant     core.Variant
	products    map[int64]*core.Product
	customers   map[int64]*core.Customer
	reviews     []core.RatingRecord
	unreachable bool
	// productDelay 让商品拉取晚于用户拉取完成
	productDelay time.Duration

	customerCalls atomic.Int32
	historyCalls  atomic.Int32
}

func (f *fakeSource) Variant() core.Variant { return f.variant }

func (f *fakeSource) FetchProduct(_ context.Context, id int64) (*core.Product, error) {
	time.Sleep(f.productDelay)
	if f.unreachable {
		return nil, core.NewDomainError(core.ModuleSource, core.ErrorCodeUnavailable, "connection refused")
	}
	p, ok := f.products[id]
	if !ok {
		return nil, core.NewDomainError(core.ModuleSource, core.ErrorCodeNotFound, "product not found")
	}
	cp := *p
	return &cp, nil
}

func (f *fakeSource) FetchCustomer(_ context.Context, id int64) (*core.Customer, error) {
	f.customerCalls.Add(1)
	c, ok := f.customers[id]
	if !ok {
		return nil, core.NewDomainError(core.ModuleSource, core.ErrorCodeNotFound, "customer not found")
	}
	cp := *c
	return &cp, nil
}

func (f *fakeSource) FetchProductHistory(_ context.Context, id int64) []core.RatingRecord {
	f.historyCalls.Add(1)
	out := []core.RatingRecord{}
	for _, r := range f.reviews {
		if r.ProductID == id {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeSource) FetchCustomerHistory(_ context.Context, id int64) []core.RatingRecord {
	f.historyCalls.Add(1)
	out := []core.RatingRecord{}
	for _, r := range f.reviews {
		if r.CustomerID == id {
			out = append(out, r)
		}
	}
	return out
}

// scenarioSource 商品 1 有 [4,5,4] 三条历史，用户 1 无历史
func scenarioSource(v core.Variant) *fakeSource {
	return &fakeSource{
		variant: v,
		products: map[int64]*core.Product{
			1: {ProductID: 1, ProductName: "Headphones", Price: 25.0, Category: "Electronics", Brand: "Acme"},
		},
		customers: map[int64]*core.Customer{
			1: {CustomerID: 1, Gender: "F", Country: "US"},
		},
		reviews: []core.RatingRecord{
			{ReviewID: 1, ProductID: 1, CustomerID: 2, Rating: 4},
			{ReviewID: 2, ProductID: 1, CustomerID: 3, Rating: 5},
			{ReviewID: 3, ProductID: 1, CustomerID: 4, Rating: 4},
		},
	}
}

// recordingModel 记录最后一次输入并返回固定值
type recordingModel struct {
	mu    sync.Mutex
	out   float64
	err   error
	input []float64
}

func (m *recordingModel) Name() string { return "recording" }

func (m *recordingModel) Predict(_ context.Context, features []float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.input = append([]float64(nil), features...)
	return m.out, m.err
}

func testEncoder(t *testing.T) *feature.LabelEncoder {
	t.Helper()
	enc, err := feature.NewLabelEncoderFromClasses(map[feature.Dimension][]string{
		feature.DimCategory: {"Books", "Electronics", "Toys"},
		feature.DimBrand:    {"Acme", "Globex"},
		feature.DimGender:   {"F", "M"},
		feature.DimCountry:  {"DE", "IN", "US"},
	})
	require.NoError(t, err)
	return enc
}

func newTestPredictor(t *testing.T, m *recordingModel, opts []Option, sources ...core.DataSource) *Predictor {
	t.Helper()
	asm, err := NewAssembler(testEncoder(t), m)
	require.NoError(t, err)
	p, err := NewPredictor(asm, sources, opts...)
	require.NoError(t, err)
	return p
}

func TestClamp(t *testing.T) {
	raws := []float64{-10, 0.5, 1.0, 3.2, 5.0, 9.9}
	want := []float64{1.0, 1.0, 1.0, 3.2, 5.0, 5.0}
	for i, r := range raws {
		assert.Equal(t, want[i], Clamp(r), "raw=%v", r)
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{13.0 / 3.0, 4.33},
		{3.0, 3.0},
		{4.666, 4.67},
		{0.125, 0.12}, // 五成双
		{0.375, 0.38},
		// 二进制值略低于 .xx5，必须舍去
		{1.075, 1.07},
		{43.0 / 40.0, 1.07},
		{2.675, 2.67},
		{1.005, 1.0},
		// 二进制值略高于 .xx5，必须进位
		{2.345, 2.35},
		{4.455, 4.46},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round2(tt.in), "in=%v", tt.in)
	}
}

func TestPredict_EndToEndScenario(t *testing.T) {
	m := &recordingModel{out: 4.567}
	p := newTestPredictor(t, m, nil, scenarioSource(core.VariantSQL))

	res, err := p.Predict(context.Background(), 1, 1, core.VariantSQL)
	require.NoError(t, err)

	assert.Equal(t, core.StatusSuccess, res.Status)
	assert.Equal(t, "SQL", res.Database)
	assert.Equal(t, int64(1), res.ProductID)
	assert.Equal(t, int64(1), res.CustomerID)
	assert.Equal(t, "Headphones", res.ProductName)
	assert.Equal(t, "Electronics", res.Category)
	assert.Equal(t, 25.0, res.Price)
	assert.Equal(t, "US", res.CustomerCountry)
	assert.Equal(t, 4.33, res.ProductAvgRating)
	assert.Equal(t, 3, res.ProductReviewCount)
	assert.Equal(t, 3.0, res.CustomerAvgRating)
	assert.Equal(t, 0, res.CustomerReviewCount)
	assert.Equal(t, 4.57, res.PredictedRating)
	assert.GreaterOrEqual(t, res.PredictedRating, MinRating)
	assert.LessOrEqual(t, res.PredictedRating, MaxRating)

	// 固定顺序：price, category, brand, gender, country, 商品均值/条数, 用户均值/条数
	assert.Equal(t, []float64{25.0, 1, 0, 0, 2, 13.0 / 3.0, 3, 3.0, 0}, m.input)
}

func TestPredict_RoundsExactBinaryValue(t *testing.T) {
	src := scenarioSource(core.VariantSQL)
	// 37 条 1 分 + 3 条 2 分，均值 43/40 = 1.075
	src.reviews = nil
	for i := 0; i < 40; i++ {
		rating := 1
		if i < 3 {
			rating = 2
		}
		src.reviews = append(src.reviews, core.RatingRecord{ReviewID: int64(i + 1), ProductID: 1, CustomerID: int64(100 + i), Rating: rating})
	}
	p := newTestPredictor(t, &recordingModel{out: 1.075}, nil, src)

	res, err := p.Predict(context.Background(), 1, 1, core.VariantSQL)
	require.NoError(t, err)
	assert.Equal(t, 40, res.ProductReviewCount)
	assert.Equal(t, 1.07, res.ProductAvgRating)
	assert.Equal(t, 1.07, res.PredictedRating)
}

func TestPredict_ClampsModelOutput(t *testing.T) {
	for raw, want := range map[float64]float64{-3: 1.0, 7.2: 5.0} {
		m := &recordingModel{out: raw}
		p := newTestPredictor(t, m, nil, scenarioSource(core.VariantDocument))
		res, err := p.Predict(context.Background(), 1, 1, core.VariantDocument)
		require.NoError(t, err)
		assert.Equal(t, want, res.PredictedRating)
	}
}

func TestPredict_VariantSymmetry(t *testing.T) {
	m := &recordingModel{out: 3.14159}
	p := newTestPredictor(t, m, nil, scenarioSource(core.VariantSQL), scenarioSource(core.VariantDocument))

	sqlRes, err := p.Predict(context.Background(), 1, 1, core.VariantSQL)
	require.NoError(t, err)
	docRes, err := p.Predict(context.Background(), 1, 1, core.VariantDocument)
	require.NoError(t, err)

	assert.Equal(t, "SQL", sqlRes.Database)
	assert.Equal(t, "NoSQL", docRes.Database)
	docRes.Database = sqlRes.Database
	assert.Equal(t, sqlRes, docRes)
	assert.Equal(t, []core.Variant{core.VariantDocument, core.VariantSQL}, p.Variants())
}

func TestPredict_NotFound(t *testing.T) {
	src := scenarioSource(core.VariantSQL)
	p := newTestPredictor(t, &recordingModel{out: 4}, nil, src)

	t.Run("product first", func(t *testing.T) {
		_, err := p.Predict(context.Background(), 99, 98, core.VariantSQL)
		require.Error(t, err)
		assert.True(t, core.IsNotFound(err))
		assert.Contains(t, err.Error(), "Product 99 not found in SQL database")
		assert.Equal(t, int32(0), src.historyCalls.Load())
	})

	t.Run("product first even when customer fails sooner", func(t *testing.T) {
		slow := scenarioSource(core.VariantDocument)
		slow.productDelay = 50 * time.Millisecond
		sp := newTestPredictor(t, &recordingModel{out: 4}, nil, slow)

		_, err := sp.Predict(context.Background(), 99, 98, core.VariantDocument)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Product 99 not found in NoSQL database")
		assert.Equal(t, int32(1), slow.customerCalls.Load())
	})

	t.Run("customer", func(t *testing.T) {
		_, err := p.Predict(context.Background(), 1, 98, core.VariantSQL)
		require.Error(t, err)
		assert.True(t, core.IsNotFound(err))
		assert.Contains(t, err.Error(), "Customer 98 not found in SQL database")
		assert.Equal(t, int32(0), src.historyCalls.Load())
	})
}

func TestPredict_UnavailableSurfacesAsNotFound(t *testing.T) {
	src := scenarioSource(core.VariantDocument)
	src.unreachable = true
	p := newTestPredictor(t, &recordingModel{out: 4}, nil, src)

	_, err := p.Predict(context.Background(), 1, 1, core.VariantDocument)
	require.Error(t, err)
	assert.True(t, core.IsNotFound(err))
	assert.Contains(t, err.Error(), "Product 1 not found in NoSQL database")
	assert.True(t, errors.Is(err, core.ErrUnavailable))
}

func TestPredict_InvalidInput(t *testing.T) {
	p := newTestPredictor(t, &recordingModel{out: 4}, nil, scenarioSource(core.VariantSQL))

	tests := []struct {
		name       string
		productID  int64
		customerID int64
		variant    core.Variant
	}{
		{"zero product", 0, 1, core.VariantSQL},
		{"negative customer", 1, -5, core.VariantSQL},
		{"unconfigured variant", 1, 1, core.VariantDocument},
		{"unknown variant", 1, 1, "graph"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Predict(context.Background(), tt.productID, tt.customerID, tt.variant)
			assert.True(t, core.IsInvalidInput(err))
		})
	}
}

func TestPredict_PredictionFailure(t *testing.T) {
	tests := []struct {
		name  string
		model *recordingModel
	}{
		{"model error", &recordingModel{err: errors.New("tensor shape mismatch")}},
		{"nan", &recordingModel{out: math.NaN()}},
		{"inf", &recordingModel{out: math.Inf(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPredictor(t, tt.model, nil, scenarioSource(core.VariantSQL))
			res, err := p.Predict(context.Background(), 1, 1, core.VariantSQL)
			assert.Nil(t, res)
			assert.True(t, core.IsPredictionFailed(err))
		})
	}
}

func TestPredict_UnseenCategoryEncodesToZero(t *testing.T) {
	src := scenarioSource(core.VariantSQL)
	src.products[2] = &core.Product{ProductID: 2, Price: 10, Category: "Garden", Brand: ""}
	m := &recordingModel{out: 3}
	p := newTestPredictor(t, m, nil, src)

	_, err := p.Predict(context.Background(), 2, 1, core.VariantSQL)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.input[feature.IdxCategory])
	assert.Equal(t, 0.0, m.input[feature.IdxBrand])
	assert.Equal(t, 3.0, m.input[feature.IdxMeanProduct])
	assert.Equal(t, 0.0, m.input[feature.IdxCountProduct])
}

type captureAuditor struct {
	features map[string]float64
	result   *core.PredictionResult
}

func (c *captureAuditor) Audit(_ context.Context, features map[string]float64, res *core.PredictionResult) []string {
	c.features = features
	c.result = res
	return []string{"captured"}
}

func TestPredict_AuditorSeesFeaturesWithoutChangingResult(t *testing.T) {
	aud := &captureAuditor{}
	p := newTestPredictor(t, &recordingModel{out: 2}, []Option{WithAuditor(aud)}, scenarioSource(core.VariantSQL))

	res, err := p.Predict(context.Background(), 1, 1, core.VariantSQL)
	require.NoError(t, err)
	assert.Same(t, res, aud.result)
	assert.Equal(t, 25.0, aud.features["price"])
	assert.Equal(t, 3.0, aud.features["count_product_avg"])
	assert.Equal(t, 2.0, res.PredictedRating)
}

func TestNewPredictor_Errors(t *testing.T) {
	asm, err := NewAssembler(testEncoder(t), &recordingModel{})
	require.NoError(t, err)

	_, err = NewPredictor(nil, []core.DataSource{scenarioSource(core.VariantSQL)})
	assert.Error(t, err)
	_, err = NewPredictor(asm, nil)
	assert.Error(t, err)
	_, err = NewPredictor(asm, []core.DataSource{scenarioSource(core.VariantSQL), scenarioSource(core.VariantSQL)})
	assert.Error(t, err)

	_, err = NewAssembler(nil, &recordingModel{})
	assert.Error(t, err)
	_, err = NewAssembler(testEncoder(t), nil)
	assert.Error(t, err)
}
