package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oaklinehq/oakline-backend/internal/catalog"
	"github.com/oaklinehq/oakline-backend/pkg/db/models"
	pkgerrors "github.com/oaklinehq/oakline-backend/pkg/errors"
)

type fakeCartRepo struct {
	carts map[uuid.UUID]*models.Cart
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{carts: make(map[uuid.UUID]*models.Cart)}
}

func (f *fakeCartRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeCartRepo) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	for _, cart := range f.carts {
		if cart.UserID == userID {
			copied := *cart
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeCartRepo) Create(ctx context.Context, cart *models.Cart) error {
	stored := *cart
	f.carts[cart.ID] = &stored
	return nil
}

func (f *fakeCartRepo) FindItem(ctx context.Context, cartID, productID uuid.UUID, variantID *uuid.UUID) (*models.CartItem, error) {
	cart, ok := f.carts[cartID]
	if !ok {
		return nil, nil
	}
	for i := range cart.Items {
		item := cart.Items[i]
		if item.ProductID != productID {
			continue
		}
		if (item.VariantID == nil) != (variantID == nil) {
			continue
		}
		if variantID != nil && *item.VariantID != *variantID {
			continue
		}
		copied := item
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeCartRepo) CreateItem(ctx context.Context, item *models.CartItem) error {
	cart := f.carts[item.CartID]
	cart.Items = append(cart.Items, *item)
	return nil
}

func (f *fakeCartRepo) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	for _, cart := range f.carts {
		for i := range cart.Items {
			if cart.Items[i].ID == itemID {
				cart.Items[i].Quantity = quantity
				return nil
			}
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeCartRepo) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) (int64, error) {
	cart, ok := f.carts[cartID]
	if !ok {
		return 0, nil
	}
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeCartRepo) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	if cart, ok := f.carts[cartID]; ok {
		cart.Items = nil
	}
	return nil
}

type fakeCatalogRepo struct {
	products map[uuid.UUID]*models.Product
	variants map[uuid.UUID]*models.ProductVariant
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		products: make(map[uuid.UUID]*models.Product),
		variants: make(map[uuid.UUID]*models.ProductVariant),
	}
}

func (f *fakeCatalogRepo) WithTx(tx *gorm.DB) catalog.Repository { return f }

func (f *fakeCatalogRepo) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if product, ok := f.products[id]; ok {
		copied := *product
		return &copied, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (f *fakeCatalogRepo) GetVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	if variant, ok := f.variants[id]; ok {
		copied := *variant
		return &copied, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product variant not found")
}

func (f *fakeCatalogRepo) ListActiveProducts(ctx context.Context, limit, offset int) ([]models.Product, int64, error) {
	return nil, 0, nil
}

func (f *fakeCatalogRepo) addProduct(stock int, price string) uuid.UUID {
	id := uuid.New()
	f.products[id] = &models.Product{
		ID:            id,
		Name:          "Walnut Bookshelf",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		IsInStock:     stock > 0,
		IsActive:      true,
	}
	return id
}

func (f *fakeCatalogRepo) addVariant(productID uuid.UUID, stock int, price *string) uuid.UUID {
	id := uuid.New()
	variant := &models.ProductVariant{
		ID:            id,
		ProductID:     productID,
		StockQuantity: stock,
		IsInStock:     stock > 0,
		IsActive:      true,
	}
	if price != nil {
		parsed := decimal.RequireFromString(*price)
		variant.Price = &parsed
	}
	f.variants[id] = variant
	return id
}

func newCartService(t *testing.T) (Service, *fakeCartRepo, *fakeCatalogRepo) {
	t.Helper()
	repo := newFakeCartRepo()
	catalogRepo := newFakeCatalogRepo()
	svc, err := NewService(repo, catalogRepo)
	require.NoError(t, err)
	return svc, repo, catalogRepo
}

func TestAddItem_CreatesCartLazily(t *testing.T) {
	svc, _, catalogRepo := newCartService(t)
	userID := uuid.New()
	productID := catalogRepo.addProduct(10, "1500.00")

	view, err := svc.AddItem(context.Background(), userID, productID, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, view.ItemCount)
	assert.True(t, view.TotalPrice.Equal(decimal.RequireFromString("3000.00")))
}

func TestAddItem_MergesExistingLine(t *testing.T) {
	svc, _, catalogRepo := newCartService(t)
	userID := uuid.New()
	productID := catalogRepo.addProduct(10, "100.00")

	_, err := svc.AddItem(context.Background(), userID, productID, nil, 2)
	require.NoError(t, err)
	view, err := svc.AddItem(context.Background(), userID, productID, nil, 3)
	require.NoError(t, err)

	require.Len(t, view.Lines, 1)
	assert.Equal(t, 5, view.Lines[0].Item.Quantity)
}

func TestAddItem_ClampsToStock(t *testing.T) {
	svc, _, catalogRepo := newCartService(t)
	userID := uuid.New()
	productID := catalogRepo.addProduct(3, "100.00")

	view, err := svc.AddItem(context.Background(), userID, productID, nil, 7)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 3, view.Lines[0].Item.Quantity)
}

func TestAddItem_OutOfStock(t *testing.T) {
	svc, _, catalogRepo := newCartService(t)
	productID := catalogRepo.addProduct(0, "100.00")

	_, err := svc.AddItem(context.Background(), uuid.New(), productID, nil, 1)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.As(err).Code())
}

func TestAddItem_VariantPriceOverridesProduct(t *testing.T) {
	svc, _, catalogRepo := newCartService(t)
	userID := uuid.New()
	productID := catalogRepo.addProduct(10, "100.00")
	variantPrice := "120.00"
	variantID := catalogRepo.addVariant(productID, 5, &variantPrice)

	view, err := svc.AddItem(context.Background(), userID, productID, &variantID, 2)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.True(t, view.Lines[0].UnitPrice.Equal(decimal.RequireFromString("120.00")))
	assert.True(t, view.TotalPrice.Equal(decimal.RequireFromString("240.00")))
}

func TestAddItem_VariantMustBelongToProduct(t *testing.T) {
	svc, _, catalogRepo := newCartService(t)
	productID := catalogRepo.addProduct(10, "100.00")
	otherProduct := catalogRepo.addProduct(10, "100.00")
	variantID := catalogRepo.addVariant(otherProduct, 5, nil)

	_, err := svc.AddItem(context.Background(), uuid.New(), productID, &variantID, 1)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestUpdateItem_ZeroQuantityRemovesLine(t *testing.T) {
	svc, _, catalogRepo := newCartService(t)
	userID := uuid.New()
	productID := catalogRepo.addProduct(10, "100.00")

	view, err := svc.AddItem(context.Background(), userID, productID, nil, 2)
	require.NoError(t, err)
	itemID := view.Lines[0].Item.ID

	view, err = svc.UpdateItem(context.Background(), userID, itemID, 0)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
}

func TestRemoveItem_NotFound(t *testing.T) {
	svc, _, _ := newCartService(t)
	_, err := svc.RemoveItem(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestClear_EmptiesCartWithoutDeletingIt(t *testing.T) {
	svc, repo, catalogRepo := newCartService(t)
	userID := uuid.New()
	productID := catalogRepo.addProduct(10, "100.00")

	_, err := svc.AddItem(context.Background(), userID, productID, nil, 2)
	require.NoError(t, err)
	require.NoError(t, svc.Clear(context.Background(), userID))

	view, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.Len(t, repo.carts, 1)
}
