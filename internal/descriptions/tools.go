package descriptions

// Tool descriptions with practical examples and use cases

const (
	// Coordinate Tools
	LayoutProjectDescription = `Convert coordinates between a rendered page preview and the PDF page.

**When to use:** A user clicked or dragged on a rendered page image and you need the matching PDF position, or you need to show where a PDF position appears on the preview.

**Why it's useful:** Previews use pixels with the origin at the top-left; PDF pages use points with the origin at the bottom-left, often with a different aspect ratio and a /Rotate entry. This tool applies scale, axis flip and rotation consistently.

**Examples:**
• Point: "Where does pixel (120, 80) on my 600x800 preview land on a Letter page?"
• Selection: "Project the box x=50 y=50 w=100 h=40 with a 2px margin"
• Centred content: "Centre a 100x50pt logo on preview pixel (300, 400)" (anchor=center)
• Reverse: "Where is PDF point (306, 396) on the preview?" (kind=inverse)

**Best practices:** Pass the exact preview size you rendered. Supply path+page instead of page_width/page_height to use the file's real page box and rotation.`

	PDFPageGeometryDescription = `Report the visible size (in points) and rotation of every page.

**When to use:** Before rendering a preview or projecting coordinates for a specific page.

**Why it's useful:** Pages of one document can differ in size and rotation; the crop box is used when present since that is what viewers show.

**Examples:**
• "What size is page 3 of contract.pdf?"
• "Which pages of scan.pdf are rotated?"`

	// Editing Tools
	PDFCropDescription = `Crop one page to a region selected on a preview.

**When to use:** A user selected part of a page (a figure, a signature block, a table) and wants a PDF containing just that region.

**Why it's useful:** The selection is projected into page space and grown by a small margin so the edges of the selected content are not clipped.

**Examples:**
• "Crop page 2 of report.pdf to the chart I selected at x=40 y=310 w=520 h=260 on a 600x800 preview"

**Best practices:** Width and height must be positive. The result is written next to the source as <name>_cropped.pdf unless output_path is given.`

	PDFStampDescription = `Place text on pages at a point selected on a preview.

**When to use:** Adding labels, approval marks or annotations at a position the user chose visually.

**Examples:**
• "Stamp APPROVED at (420, 60) on page 1 of invoice.pdf"
• "Put DRAFT centred at the middle of every page" (anchor=center, pages=all)

**Best practices:** The point marks the text's top-left by default. With anchor=center give content_width so the text is centred horizontally too.`

	PDFRedactDescription = `Black out areas selected on a preview of one page.

**When to use:** Hiding account numbers, names or signatures the user marked on a rendered page before sharing the document.

**Why it's useful:** Every area goes through the same preview-to-page projection, so the boxes land exactly where they were drawn regardless of preview size or page rotation.

**Examples:**
• "Redact the two boxes I drew on page 1 of statement.pdf" (rects=[{x:40,y:90,width:200,height:18},{x:40,y:400,width:120,height:18}])

**Best practices:** The boxes are drawn over the page; the text underneath remains in the file, so extract or rasterize before sharing when the text itself must be removed.`

	PDFStampImageDescription = `Place a PNG or JPEG image (a signature, logo or seal) at a point selected on a preview.

**When to use:** Signing a document or adding a logo where the user clicked.

**Examples:**
• "Put signature.png centred on (420, 700) on the last page of contract.pdf, 120pt wide"
• "Add logo.png at the top-left corner of every page" (anchor=top_left)

**Best practices:** The point marks the image centre by default. Give width in points to scale the image; the height follows its aspect ratio.`

	PDFRotateDescription = `Rotate pages by a multiple of 90 degrees.

**When to use:** Fixing scanned pages that are sideways or upside down.

**Examples:**
• "Rotate pages 2-4 of scan.pdf by 90 degrees"

**Best practices:** Only the page /Rotate entry changes; run pdf_page_geometry afterwards before projecting on the rotated pages.`

	// Extraction Tools
	PDFToTableDescription = `Convert a PDF into a spreadsheet with one row per visual text line.

**When to use:** Moving the text of a report, statement or form into a spreadsheet while keeping its line structure.

**Why it's useful:** Text runs whose baselines are within the line tolerance are merged into one line in left-to-right order, so a line of separately positioned words becomes a single row. Each row keeps the font size and weight of the line's first run.

**Examples:**
• "Convert statement.pdf to a spreadsheet"
• "Convert scan.pdf using the OCR output scan.hocr" (hocr_path)

**Common workflows:**
1. Born-digital PDF: pdf_to_table → open the .xlsx
2. Scanned PDF: run tesseract with hocr output → pdf_to_table with hocr_path (or place <name>.hocr next to the PDF)

**Best practices:** Raise line_tolerance for documents with slightly uneven baselines.`

	// Comparison Tools
	PDFCompareDescription = `Compare the text of two PDFs line by line.

**When to use:** Checking what changed between two versions of a document.

**Why it's useful:** Each pair of lines gets a similarity score between 0 and 1; pairs under the threshold are reported with both texts, plus an aggregate similarity.

**Examples:**
• "What changed between contract-v1.pdf and contract-v2.pdf?"
• "Show every line pair with its score" (include_all=true)

**Best practices:** The default mode pairs line i with line i, so one inserted line shifts all later pairs. Use mode=aligned when lines were inserted or removed.`

	TextCompareDescription = `Compare two texts line by line with the same report as pdf_compare.

**When to use:** You already have the two texts (from another tool or the user) and want a line level similarity report.`

	// Server Tools
	PDFServerInfoDescription = `Get server information, the layout defaults in effect, and the PDFs available.

**When to use:** At the start of a session to discover files, directories and defaults (line tolerance, diff threshold, crop margin).`
)
